// Package file stores cache values as one JSON file per key in a directory.
package file

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/medsynth/medsynth/pkg/cache/backend"
)

const ext = ".json"

// Store is a directory-backed backend.Backend.
type Store struct {
	dir      string
	maxBytes int64
}

// New creates dir if needed and verifies it is writable. maxBytes limits the
// total size of stored values; zero means unlimited.
func New(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return nil, fmt.Errorf("cache dir not writable: %w", err)
	}
	f.Close()
	os.Remove(f.Name())
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return "file" }

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+ext)
}

// Get implements backend.Backend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set writes value to a temp file and renames it over the entry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	target := s.path(key)
	if s.maxBytes > 0 {
		used, err := s.usage(target)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.maxBytes {
			return backend.ErrQuotaExceeded
		}
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return mapWriteErr(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return mapWriteErr(err)
	}
	if err := tmp.Close(); err != nil {
		return mapWriteErr(err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Delete implements backend.Backend. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys implements backend.Backend.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		if key := string(raw); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close implements backend.Backend.
func (s *Store) Close() error { return nil }

// usage sums entry sizes, excluding the file about to be replaced.
func (s *Store) usage(exclude string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list cache dir: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) || filepath.Join(s.dir, e.Name()) == exclude {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func mapWriteErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return backend.ErrQuotaExceeded
	}
	return fmt.Errorf("write cache entry: %w", err)
}
