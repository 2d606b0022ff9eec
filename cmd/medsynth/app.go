package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/audit"
	"github.com/medsynth/medsynth/pkg/budget"
	"github.com/medsynth/medsynth/pkg/cache"
	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/config"
	"github.com/medsynth/medsynth/pkg/generator"
	"github.com/medsynth/medsynth/pkg/models"
	"github.com/medsynth/medsynth/pkg/retry"
	"github.com/medsynth/medsynth/pkg/tracker"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	cache   *cache.Cache
	tracker *tracker.SQLiteTracker
	budget  *budget.Enforcer
	audit   *audit.Logger
	gen     *generator.Generator
}

// loadConfig reads the dotenv file, the YAML config and the environment,
// then applies flag overrides.
func loadConfig(ro *rootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(ro.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(ro.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if ro.logLevel != "" {
		cfg.Log.Level = ro.logLevel
	}
	if ro.logFormat != "" {
		cfg.Log.Format = ro.logFormat
	}
	return cfg, nil
}

func newLogger(lc config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	var logger zerolog.Logger
	switch lc.Format {
	case "json":
		logger = zerolog.New(os.Stderr)
	case "", "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", lc.Format)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// openCache opens only the cache, for maintenance commands.
func openCache(ctx context.Context, ro *rootOptions) (*config.Config, *cache.Cache, zerolog.Logger, error) {
	cfg, err := loadConfig(ro)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	if err := ensureParent(cfg.Cache.DBPath); err != nil {
		return nil, nil, logger, err
	}
	c, err := cache.Open(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, nil, logger, err
	}
	return cfg, c, logger, nil
}

// newApp wires configuration, cache, usage tracker, budgets, audit log,
// completion client, retry orchestrator and generator.
func newApp(ctx context.Context, ro *rootOptions) (*app, error) {
	cfg, c, logger, err := openCache(ctx, ro)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, cache: c}

	opts := []generator.Option{
		generator.WithLogger(logger),
		generator.WithSampling(cfg.Generation.MaxAttempts, cfg.Generation.Temperature, cfg.Generation.MaxTokens),
	}
	if cfg.Tracker.DBPath != "" {
		if err := ensureParent(cfg.Tracker.DBPath); err != nil {
			a.Close()
			return nil, err
		}
		tr, err := tracker.New(cfg.Tracker.DBPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.tracker = tr
		opts = append(opts, generator.WithRecorder(tr))

		if len(cfg.Budgets) > 0 {
			a.budget = budget.New(cfg.Budgets, tr)
			opts = append(opts, generator.WithBudget(a.budget))
		}
	} else if len(cfg.Budgets) > 0 {
		logger.Warn().Msg("budgets ignored: usage tracking is disabled")
	}
	if cfg.Audit.Enabled {
		if err := ensureParent(cfg.Audit.DBPath); err != nil {
			a.Close()
			return nil, err
		}
		al, err := audit.New(cfg.Audit)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.audit = al
		opts = append(opts, generator.WithAuditor(al))
	}

	client := completion.New(cfg.Generation.RequestTimeout)
	orch := retry.New(client,
		retry.WithDefaults(cfg.Generation.MaxAttempts, cfg.Generation.Temperature, cfg.Generation.MaxTokens),
		retry.WithLogger(logger),
	)
	a.gen = generator.New(orch, c, opts...)
	return a, nil
}

// modelConfig returns the configured deployment, falling back to the one
// saved with "model-config save" when the config and environment leave it
// incomplete.
func (a *app) modelConfig(ctx context.Context) (models.ModelConfig, error) {
	if completion.ValidateConfig(a.cfg.Model) == nil {
		return a.cfg.Model, nil
	}
	saved, err := a.cache.ModelConfigs().Load(ctx)
	if err != nil {
		return models.ModelConfig{}, err
	}
	if saved == nil {
		// Let the generator report which field is missing.
		return a.cfg.Model, nil
	}
	a.logger.Debug().Msg("using saved model config")
	return *saved, nil
}

func (a *app) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close audit log")
		}
	}
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close tracker")
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close cache")
	}
}

func ensureParent(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
