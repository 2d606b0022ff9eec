package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medsynth/medsynth/pkg/models"
)

func tempCfg(t *testing.T) models.AuditConfig {
	t.Helper()
	return models.AuditConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "audit_test.db"),
		RetentionDays: 90,
		MaxBodySize:   1024,
		Include:       []string{"prompts", "responses"},
	}
}

func mustNew(t *testing.T, cfg models.AuditConfig) *Logger {
	t.Helper()
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEntry() models.AuditEntry {
	return models.AuditEntry{
		ID:          "gen-001",
		EntityKind:  models.KindPatient,
		Deployment:  "gpt-4o",
		KeyHash:     KeyFingerprint("sk-test-abc123xyz"),
		CacheKey:    "3f2a9c",
		Prompt:      "Generate one synthetic patient.",
		Response:    `{"firstName":"Jane"}`,
		Outcome:     models.AuditOK,
		Attempts:    1,
		TotalTokens: 30,
		LatencyMs:   150,
		CreatedAt:   time.Now(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{EntityKind: models.KindPatient})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != "gen-001" || e.Prompt == "" || e.Response == "" || e.Outcome != models.AuditOK {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestQueryFilters(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	failed := sampleEntry()
	failed.ID = "gen-002"
	failed.EntityKind = models.KindLabReport
	failed.Outcome = models.AuditFailed
	failed.Error = "structured generation failed after 3 attempts"
	_ = l.Log(ctx, failed)

	entries, err := l.Query(ctx, models.AuditQueryOpts{Outcome: models.AuditFailed})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "gen-002" || entries[0].Error == "" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	entries, err = l.Query(ctx, models.AuditQueryOpts{ID: "gen-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1, got %d", len(entries))
	}

	entries, err = l.Query(ctx, models.AuditQueryOpts{Deployment: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries for other deployment, got %d", len(entries))
	}
}

func TestExcludeKinds(t *testing.T) {
	cfg := tempCfg(t)
	cfg.ExcludeKinds = []string{"patient"}
	l := mustNew(t, cfg)
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries for excluded kind, got %d", len(entries))
	}
}

func TestBodyTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxBodySize = 16
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Prompt = strings.Repeat("x", 100)
	if err := l.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{ID: "gen-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries[0].Prompt) != 16 {
		t.Errorf("expected truncated prompt len 16, got %d", len(entries[0].Prompt))
	}
}

func TestIncludeFiltering(t *testing.T) {
	cfg := tempCfg(t)
	cfg.Include = nil
	l := mustNew(t, cfg)
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{ID: "gen-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if entries[0].Prompt != "" {
		t.Errorf("expected empty prompt, got %q", entries[0].Prompt)
	}
	if entries[0].Response != "" {
		t.Errorf("expected empty response, got %q", entries[0].Response)
	}
	if entries[0].TotalTokens != 30 {
		t.Errorf("metadata should be kept, got %+v", entries[0])
	}
}

func TestCleanup(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 1
	l := mustNew(t, cfg)
	ctx := context.Background()

	old := sampleEntry()
	old.CreatedAt = time.Now().AddDate(0, 0, -2)
	_ = l.Log(ctx, old)
	recent := sampleEntry()
	recent.ID = "gen-002"
	_ = l.Log(ctx, recent)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
}

func TestCleanupKeepsForeverWithoutRetention(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0
	l := mustNew(t, cfg)
	ctx := context.Background()

	old := sampleEntry()
	old.CreatedAt = time.Now().AddDate(-1, 0, 0)
	_ = l.Log(ctx, old)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected nothing deleted, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	e2 := sampleEntry()
	e2.ID = "gen-002"
	_ = l.Log(ctx, e2)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat row, got %d", len(stats))
	}
	if stats[0].Count != 2 || stats[0].EntityKind != models.KindPatient || len(stats[0].Day) != 10 {
		t.Errorf("unexpected stat: %+v", stats[0])
	}
}

func TestKeyFingerprint(t *testing.T) {
	fp := KeyFingerprint("sk-test-abc123xyz")
	if len(fp) != 16 {
		t.Errorf("expected 16-char fingerprint, got %d", len(fp))
	}
	if strings.Contains(fp, "sk-test") {
		t.Error("fingerprint must not contain the key")
	}
	if fp != KeyFingerprint("sk-test-abc123xyz") {
		t.Error("fingerprint should be stable")
	}
	if KeyFingerprint("") != "" {
		t.Error("empty key should have no fingerprint")
	}
}

func TestNilLoggerSafe(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), sampleEntry()); err != nil {
		t.Errorf("nil logger should be safe: %v", err)
	}
}

func TestNewInvalidPath(t *testing.T) {
	cfg := models.AuditConfig{
		Enabled: true,
		DBPath:  filepath.Join(os.TempDir(), "nonexistent", "deep", "path", "audit.db"),
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for invalid path")
	}
}
