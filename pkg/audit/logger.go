// Package audit keeps a SQLite log of model-backed generations: what was
// asked, what came back and how it ended.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medsynth/medsynth/pkg/models"
)

// Logger writes and queries audit entries in a dedicated SQLite database.
type Logger struct {
	db      *sql.DB
	cfg     models.AuditConfig
	done    chan struct{}
	wg      sync.WaitGroup
	include map[string]bool
	exclude map[string]bool
}

// New opens the audit SQLite database, creates the schema and starts the
// hourly retention sweep.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	inc := make(map[string]bool)
	for _, v := range cfg.Include {
		inc[v] = true
	}
	exc := make(map[string]bool)
	for _, v := range cfg.ExcludeKinds {
		exc[v] = true
	}

	l := &Logger{
		db:      db,
		cfg:     cfg,
		done:    make(chan struct{}),
		include: inc,
		exclude: exc,
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS generation_audit (
		id           TEXT PRIMARY KEY,
		entity_kind  TEXT NOT NULL,
		deployment   TEXT NOT NULL,
		key_hash     TEXT NOT NULL,
		cache_key    TEXT NOT NULL,
		prompt       TEXT,
		response     TEXT,
		outcome      TEXT NOT NULL,
		error        TEXT,
		attempts     INTEGER,
		total_tokens INTEGER,
		latency_ms   INTEGER,
		created_at   DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_kind ON generation_audit(entity_kind)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_created ON generation_audit(created_at)`)
	return err
}

// Log inserts an audit entry, respecting include/exclude configuration.
// Prompts and responses are kept only when listed in Include.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if l.exclude[string(entry.EntityKind)] {
		return nil
	}

	prompt := entry.Prompt
	response := entry.Response
	if !l.include["prompts"] {
		prompt = ""
	}
	if !l.include["responses"] {
		response = ""
	}
	if l.cfg.MaxBodySize > 0 {
		if len(prompt) > l.cfg.MaxBodySize {
			prompt = prompt[:l.cfg.MaxBodySize]
		}
		if len(response) > l.cfg.MaxBodySize {
			response = response[:l.cfg.MaxBodySize]
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generation_audit
		(id, entity_kind, deployment, key_hash, cache_key, prompt, response,
		 outcome, error, attempts, total_tokens, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.EntityKind), entry.Deployment, entry.KeyHash, entry.CacheKey,
		prompt, response, entry.Outcome, entry.Error,
		entry.Attempts, entry.TotalTokens, entry.LatencyMs, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Query returns audit entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT id, entity_kind, deployment, key_hash, cache_key, prompt, response,
		outcome, error, attempts, total_tokens, latency_ms, created_at
		FROM generation_audit WHERE 1=1`
	var args []any

	if opts.ID != "" {
		q += " AND id = ?"
		args = append(args, opts.ID)
	}
	if opts.EntityKind != "" {
		q += " AND entity_kind = ?"
		args = append(args, string(opts.EntityKind))
	}
	if opts.Deployment != "" {
		q += " AND deployment = ?"
		args = append(args, opts.Deployment)
	}
	if opts.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, opts.Outcome)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var kind string
		var prompt, response, errText sql.NullString
		if err := rows.Scan(
			&e.ID, &kind, &e.Deployment, &e.KeyHash, &e.CacheKey,
			&prompt, &response, &e.Outcome, &errText,
			&e.Attempts, &e.TotalTokens, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.EntityKind = models.EntityKind(kind)
		e.Prompt = prompt.String
		e.Response = response.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts grouped by entity kind, outcome and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT entity_kind, outcome, substr(created_at, 1, 10) AS day, count(*) AS cnt
		 FROM generation_audit GROUP BY entity_kind, outcome, day ORDER BY day DESC, entity_kind, outcome`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var kind string
		var day sql.NullString
		if err := rows.Scan(&kind, &s.Outcome, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.EntityKind = models.EntityKind(kind)
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period. A
// non-positive retention keeps everything.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM generation_audit WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// KeyFingerprint returns a short SHA-256 fingerprint of an API key. It
// tells credentials apart without revealing any part of them.
func KeyFingerprint(key string) string {
	if key == "" {
		return ""
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])[:16]
}
