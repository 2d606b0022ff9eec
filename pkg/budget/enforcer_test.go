package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/medsynth/medsynth/pkg/models"
	"github.com/medsynth/medsynth/pkg/tracker"
)

func setup(t *testing.T) (tracker.Tracker, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "budget_test.db")
	tr, err := tracker.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, context.Background()
}

func record(ctx context.Context, tr tracker.Tracker, kind models.EntityKind, deployment string, tokens int) {
	_ = tr.Record(ctx, models.UsageRecord{
		EntityKind: kind, Deployment: deployment,
		PromptTokens: tokens / 2, CompletionTokens: tokens - tokens/2, TotalTokens: tokens,
		CreatedAt: time.Now().UTC(),
	})
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)
	record(ctx, tr, models.KindPatient, "gpt-4o", 150)

	e := New([]models.BudgetPolicy{
		{Deployment: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, "gpt-4o", models.KindPatient); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckOverBudget(t *testing.T) {
	tr, ctx := setup(t)
	record(ctx, tr, models.KindPatient, "gpt-4o", 600)
	record(ctx, tr, models.KindLabReport, "gpt-4o", 500)

	e := New([]models.BudgetPolicy{
		{Deployment: "gpt-4o", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	err := e.Check(ctx, "gpt-4o", models.KindProvider)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}
	if err := e.Check(ctx, "gpt-4o-mini", models.KindProvider); err != nil {
		t.Errorf("other deployments should be unaffected, got %v", err)
	}
}

func TestCheckKindFilter(t *testing.T) {
	tr, ctx := setup(t)
	record(ctx, tr, models.KindLabReport, "gpt-4o", 800)

	e := New([]models.BudgetPolicy{
		{Deployment: "*", EntityKind: models.KindLabReport, MaxTokens: 500, Period: models.BudgetMonthly},
	}, tr)

	if err := e.Check(ctx, "gpt-4o", models.KindPatient); err != nil {
		t.Errorf("lab policy should not apply to patients, got %v", err)
	}
	if err := e.Check(ctx, "gpt-4o", models.KindLabReport); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded for labs, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)
	record(ctx, tr, models.KindPatient, "gpt-4o", 300)

	e := New([]models.BudgetPolicy{
		{Deployment: "*", MaxTokens: 1000, Period: models.BudgetDaily},
		{Deployment: "gpt-4o", EntityKind: models.KindPatient, MaxTokens: 200, Period: models.BudgetMonthly},
		{Deployment: "other", MaxTokens: 5, Period: models.BudgetDaily},
	}, tr)

	statuses, err := e.Status(ctx, "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Used != 300 || statuses[0].Remaining != 700 {
		t.Errorf("unexpected daily status: %+v", statuses[0])
	}
	if statuses[1].Remaining != 0 {
		t.Errorf("remaining should floor at 0, got %d", statuses[1].Remaining)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	if got := periodStart(models.BudgetDaily, now); !got.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected daily start %v", got)
	}
	if got := periodStart(models.BudgetMonthly, now); !got.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected monthly start %v", got)
	}
}

func TestPoliciesReturnsCopy(t *testing.T) {
	tr, _ := setup(t)
	e := New([]models.BudgetPolicy{
		{Deployment: "gpt-4o", MaxTokens: 500, Period: models.BudgetMonthly},
	}, tr)

	got := e.Policies()
	if len(got) != 1 || got[0].MaxTokens != 500 {
		t.Fatalf("unexpected policies %+v", got)
	}
	got[0].MaxTokens = 1
	if e.Policies()[0].MaxTokens != 500 {
		t.Error("mutating the returned slice must not change the enforcer")
	}
}
