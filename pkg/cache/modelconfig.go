package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medsynth/medsynth/pkg/cache/backend"
	"github.com/medsynth/medsynth/pkg/models"
)

// ModelConfigKey is stored outside KeyPrefix so Clear leaves it alone.
const ModelConfigKey = "medsynth:model-config"

// ModelConfigStore persists the active model configuration.
type ModelConfigStore struct {
	store backend.Backend
}

// NewModelConfigStore creates a store on b.
func NewModelConfigStore(b backend.Backend) *ModelConfigStore {
	return &ModelConfigStore{store: b}
}

// ModelConfigs returns a store sharing this cache's backend.
func (c *Cache) ModelConfigs() *ModelConfigStore {
	return NewModelConfigStore(c.store)
}

// Save replaces the stored configuration.
func (s *ModelConfigStore) Save(ctx context.Context, cfg models.ModelConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode model config: %w", err)
	}
	if err := s.store.Set(ctx, ModelConfigKey, data); err != nil {
		return fmt.Errorf("save model config: %w", err)
	}
	return nil
}

// Load returns the stored configuration, or nil when none is saved.
func (s *ModelConfigStore) Load(ctx context.Context) (*models.ModelConfig, error) {
	data, err := s.store.Get(ctx, ModelConfigKey)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}
	var cfg models.ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode model config: %w", err)
	}
	return &cfg, nil
}

// Clear removes the stored configuration.
func (s *ModelConfigStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, ModelConfigKey); err != nil {
		return fmt.Errorf("clear model config: %w", err)
	}
	return nil
}

// Has reports whether a configuration is stored.
func (s *ModelConfigStore) Has(ctx context.Context) bool {
	_, err := s.store.Get(ctx, ModelConfigKey)
	return err == nil
}
