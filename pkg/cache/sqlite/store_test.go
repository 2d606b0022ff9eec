package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/medsynth/medsynth/pkg/cache/backend/backendtest"
)

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	s, err := New(dbPath, maxBytes)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	backendtest.Run(t, newTestStore(t, 0))
}

func TestConcurrent(t *testing.T) {
	backendtest.RunConcurrent(t, newTestStore(t, 0))
}

func TestConcurrentWithQuota(t *testing.T) {
	backendtest.RunConcurrent(t, newTestStore(t, 1<<20))
}

func TestQuota(t *testing.T) {
	backendtest.RunQuota(t, newTestStore(t, 1024), 1024)
}

func TestPrefixWithWildcards(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := t.Context()
	_ = s.Set(ctx, "a_%:1", []byte("x"))
	_ = s.Set(ctx, "ab:1", []byte("y"))

	keys, err := s.Keys(ctx, "a_%:")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "a_%:1" {
		t.Errorf("prefix match should be literal, got %v", keys)
	}
}
