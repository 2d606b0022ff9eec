package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/medsynth/medsynth/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndQuery(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := models.UsageRecord{
		EntityKind:       models.KindPatient,
		Deployment:       "gpt-4o",
		Attempts:         2,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		CreatedAt:        now,
	}
	if err := tr.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}
	_ = tr.Record(ctx, models.UsageRecord{EntityKind: models.KindProvider, Deployment: "gpt-4o", TotalTokens: 10, CreatedAt: now.Add(-time.Second)})

	records, err := tr.QueryByKind(ctx, models.KindPatient, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].TotalTokens != 150 || records[0].Attempts != 2 {
		t.Errorf("unexpected record: %+v", records[0])
	}

	all, err := tr.QueryByKind(ctx, "", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 records for all kinds, got %d", len(all))
	}
	if all[1].Attempts != 1 {
		t.Errorf("expected attempts to default to 1, got %d", all[1].Attempts)
	}
}

func TestTotalSince(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		_ = tr.Record(ctx, models.UsageRecord{
			EntityKind: models.KindLabReport, Deployment: "gpt-4o",
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}
	_ = tr.Record(ctx, models.UsageRecord{
		EntityKind: models.KindLabReport, Deployment: "gpt-4o",
		TotalTokens: 999, CreatedAt: now.Add(-time.Hour),
	})

	total, err := tr.TotalSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 450 {
		t.Errorf("expected 450, got %d", total)
	}
}

func TestTotalByDeployment(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{EntityKind: models.KindPatient, Deployment: "gpt-4o", TotalTokens: 100, CreatedAt: now})
	_ = tr.Record(ctx, models.UsageRecord{EntityKind: models.KindLabReport, Deployment: "gpt-4o", TotalTokens: 40, CreatedAt: now})
	_ = tr.Record(ctx, models.UsageRecord{EntityKind: models.KindPatient, Deployment: "gpt-4o-mini", TotalTokens: 7, CreatedAt: now})

	total, err := tr.TotalByDeployment(ctx, "gpt-4o", "", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 140 {
		t.Errorf("expected 140, got %d", total)
	}

	total, err = tr.TotalByDeployment(ctx, "gpt-4o", models.KindPatient, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 100 {
		t.Errorf("expected 100 for patients, got %d", total)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{
		EntityKind: models.KindPatient, Deployment: "gpt-4o", Attempts: 1,
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		EntityKind: models.KindPatient, Deployment: "gpt-4o", Attempts: 3,
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		EntityKind: models.KindVisitReport, Deployment: "gpt-4o-mini",
		PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300,
		CreatedAt: now,
	})

	summaries, err := tr.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if s := summaries[0]; s.EntityKind != models.KindPatient || s.RequestCount != 2 || s.TotalAttempts != 4 || s.TotalTokens != 300 {
		t.Errorf("unexpected patient summary: %+v", s)
	}

	// Filter by deployment
	summaries, err = tr.Summary(ctx, "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	tr1, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = tr1.Close()

	tr2, err := New(dbPath)
	if err != nil {
		t.Fatal("second New() failed:", err)
	}
	_ = tr2.Close()
}
