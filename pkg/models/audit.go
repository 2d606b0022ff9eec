package models

import "time"

// AuditConfig controls the generation audit log.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	MaxBodySize   int      `yaml:"max_body_size"`
	Include       []string `yaml:"include"`
	ExcludeKinds  []string `yaml:"exclude_kinds"`
}

// Audit outcomes.
const (
	AuditOK      = "ok"
	AuditInvalid = "invalid"
	AuditFailed  = "failed"
)

// AuditEntry records one model-backed generation. KeyHash identifies the
// credential without storing it.
type AuditEntry struct {
	ID          string     `json:"id"`
	EntityKind  EntityKind `json:"entity_kind"`
	Deployment  string     `json:"deployment"`
	KeyHash     string     `json:"key_hash"`
	CacheKey    string     `json:"cache_key"`
	Prompt      string     `json:"prompt,omitempty"`
	Response    string     `json:"response,omitempty"`
	Outcome     string     `json:"outcome"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	TotalTokens int        `json:"total_tokens"`
	LatencyMs   int64      `json:"latency_ms"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuditQueryOpts filters audit log queries.
type AuditQueryOpts struct {
	ID         string
	EntityKind EntityKind
	Deployment string
	Outcome    string
	Since      time.Time
	Limit      int
}

// AuditStat is an aggregate count by entity kind, outcome and day.
type AuditStat struct {
	EntityKind EntityKind `json:"entity_kind"`
	Outcome    string     `json:"outcome"`
	Day        string     `json:"day"`
	Count      int        `json:"count"`
}
