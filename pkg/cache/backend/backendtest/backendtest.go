// Package backendtest holds behavior checks shared by every backend.Backend
// implementation.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/medsynth/medsynth/pkg/cache/backend"
)

// Run exercises b against the backend contract. b must start empty.
func Run(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.Get(ctx, "missing"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("%s: expected ErrNotFound, got %v", b.Name(), err)
	}

	if err := b.Set(ctx, "a:1", []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(ctx, "a:2", []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(ctx, "b:1", []byte(`{"v":3}`)); err != nil {
		t.Fatal(err)
	}

	got, err := b.Get(ctx, "a:1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("%s: unexpected value %s", b.Name(), got)
	}

	if err := b.Set(ctx, "a:1", []byte(`{"v":10}`)); err != nil {
		t.Fatal(err)
	}
	got, _ = b.Get(ctx, "a:1")
	if string(got) != `{"v":10}` {
		t.Errorf("%s: expected overwrite, got %s", b.Name(), got)
	}

	keys, err := b.Keys(ctx, "a:")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a:1" || keys[1] != "a:2" {
		t.Errorf("%s: unexpected prefixed keys %v", b.Name(), keys)
	}

	all, err := b.Keys(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("%s: expected 3 keys, got %v", b.Name(), all)
	}

	if err := b.Delete(ctx, "a:2"); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete(ctx, "a:2"); err != nil {
		t.Errorf("%s: deleting an absent key should succeed, got %v", b.Name(), err)
	}
	if _, err := b.Get(ctx, "a:2"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("%s: expected ErrNotFound after delete, got %v", b.Name(), err)
	}
}

// RunQuota checks that a backend built with a small quota rejects a write
// that would exceed it and accepts one after space is freed. limit is the
// quota the backend was built with.
func RunQuota(t *testing.T, b backend.Backend, limit int) {
	t.Helper()
	ctx := context.Background()

	half := make([]byte, limit/2+1)
	if err := b.Set(ctx, "q:1", half); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(ctx, "q:2", half); !errors.Is(err, backend.ErrQuotaExceeded) {
		t.Fatalf("%s: expected ErrQuotaExceeded, got %v", b.Name(), err)
	}
	if err := b.Set(ctx, "q:1", half); err != nil {
		t.Errorf("%s: replacing an entry should not count it twice: %v", b.Name(), err)
	}
	if err := b.Delete(ctx, "q:1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(ctx, "q:2", half); err != nil {
		t.Errorf("%s: expected write to succeed after delete, got %v", b.Name(), err)
	}
}

// RunConcurrent writes and reads back distinct keys from many goroutines at
// once. Every write must land.
func RunConcurrent(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()
	const workers = 32

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("c:%d", i)
			want := fmt.Sprintf(`{"v":%d}`, i)
			if err := b.Set(ctx, key, []byte(want)); err != nil {
				errs <- fmt.Errorf("set %s: %w", key, err)
				return
			}
			got, err := b.Get(ctx, key)
			if err != nil {
				errs <- fmt.Errorf("get %s: %w", key, err)
				return
			}
			if string(got) != want {
				errs <- fmt.Errorf("get %s: expected %s, got %s", key, want, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("%s: %v", b.Name(), err)
	}

	keys, err := b.Keys(ctx, "c:")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != workers {
		t.Errorf("%s: expected %d keys after concurrent writes, got %d", b.Name(), workers, len(keys))
	}
}
