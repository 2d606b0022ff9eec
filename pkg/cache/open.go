package cache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/cache/backend"
	"github.com/medsynth/medsynth/pkg/cache/file"
	"github.com/medsynth/medsynth/pkg/cache/redis"
	"github.com/medsynth/medsynth/pkg/cache/sqlite"
	"github.com/medsynth/medsynth/pkg/config"
)

// Open picks a backend once, at startup. With backend "auto" it prefers
// Redis when a URL is configured and answers, then SQLite, then the file
// directory. A forced backend that cannot be opened is an error.
func Open(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (*Cache, error) {
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("backend", store.Name()).Dur("ttl", cfg.TTL).Bool("enabled", cfg.Enabled).Msg("cache opened")

	opts := []Option{WithLogger(logger)}
	if !cfg.Enabled {
		opts = append(opts, Disabled())
	}
	return New(store, cfg.TTL, opts...), nil
}

func openBackend(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case "redis":
		return redis.New(ctx, cfg.RedisURL)
	case "sqlite":
		return sqlite.New(cfg.DBPath, cfg.MaxBytes)
	case "file":
		return file.New(cfg.Dir, cfg.MaxBytes)
	case "", "auto":
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	if cfg.RedisURL != "" {
		s, err := redis.New(ctx, cfg.RedisURL)
		if err == nil {
			return s, nil
		}
		logger.Warn().Err(err).Msg("redis unavailable, falling back")
	}
	if cfg.DBPath != "" {
		s, err := sqlite.New(cfg.DBPath, cfg.MaxBytes)
		if err == nil {
			return s, nil
		}
		logger.Warn().Err(err).Msg("sqlite unavailable, falling back")
	}
	s, err := file.New(cfg.Dir, cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("no usable cache backend: %w", err)
	}
	return s, nil
}
