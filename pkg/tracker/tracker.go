// Package tracker stores per-generation token usage in SQLite.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medsynth/medsynth/pkg/models"
)

// Tracker records and queries token usage.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// QueryByKind returns usage records for an entity kind since a given time.
	// An empty kind matches every kind.
	QueryByKind(ctx context.Context, kind models.EntityKind, since time.Time) ([]models.UsageRecord, error)
	// TotalSince returns total tokens used since a given time.
	TotalSince(ctx context.Context, since time.Time) (int64, error)
	// TotalByDeployment returns total tokens used by a deployment since a
	// given time, optionally restricted to one entity kind.
	TotalByDeployment(ctx context.Context, deployment string, kind models.EntityKind, since time.Time) (int64, error)
	// Summary returns usage aggregated by entity kind and deployment,
	// optionally filtered by deployment.
	Summary(ctx context.Context, deployment string) ([]models.UsageSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS generation_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_kind TEXT NOT NULL,
	deployment TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 1,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_kind_time ON generation_usage(entity_kind, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record. A zero CreatedAt is set to now.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Attempts == 0 {
		rec.Attempts = 1
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO generation_usage (entity_kind, deployment, attempts, prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rec.EntityKind), rec.Deployment, rec.Attempts, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// QueryByKind returns usage records for an entity kind since a given time.
func (t *SQLiteTracker) QueryByKind(ctx context.Context, kind models.EntityKind, since time.Time) ([]models.UsageRecord, error) {
	query := `SELECT id, entity_kind, deployment, attempts, prompt_tokens, completion_tokens, total_tokens, created_at
		 FROM generation_usage WHERE created_at >= ?`
	args := []any{since}
	if kind != "" {
		query += ` AND entity_kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Deployment, &r.Attempts, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		r.EntityKind = models.EntityKind(kind)
		records = append(records, r)
	}
	return records, rows.Err()
}

// TotalSince returns total tokens used since a given time.
func (t *SQLiteTracker) TotalSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_tokens), 0) FROM generation_usage WHERE created_at >= ?`,
		since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// TotalByDeployment returns total tokens used by a deployment since a given
// time. An empty kind matches every kind.
func (t *SQLiteTracker) TotalByDeployment(ctx context.Context, deployment string, kind models.EntityKind, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(total_tokens), 0) FROM generation_usage WHERE deployment = ? AND created_at >= ?`
	args := []any{deployment, since}
	if kind != "" {
		query += ` AND entity_kind = ?`
		args = append(args, string(kind))
	}
	var total int64
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total usage by deployment: %w", err)
	}
	return total, nil
}

// Summary returns aggregated usage grouped by entity kind and deployment.
func (t *SQLiteTracker) Summary(ctx context.Context, deployment string) ([]models.UsageSummary, error) {
	query := `SELECT entity_kind, deployment, COUNT(*), SUM(attempts), SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
		 FROM generation_usage`
	var args []any
	if deployment != "" {
		query += ` WHERE deployment = ?`
		args = append(args, deployment)
	}
	query += ` GROUP BY entity_kind, deployment ORDER BY entity_kind, deployment`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		var kind string
		if err := rows.Scan(&kind, &s.Deployment, &s.RequestCount, &s.TotalAttempts, &s.TotalPrompt, &s.TotalCompletion, &s.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.EntityKind = models.EntityKind(kind)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
