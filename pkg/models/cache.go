package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is the stored form of one generated entity.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt *time.Time      `json:"expiresAt"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// CacheStats reports cache contents and performance.
type CacheStats struct {
	Backend   string `json:"backend"`
	Entries   int64  `json:"entries"`
	Valid     int64  `json:"valid"`
	Expired   int64  `json:"expired"`
	Corrupt   int64  `json:"corrupt"`
	SizeBytes int64  `json:"size_bytes"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
}
