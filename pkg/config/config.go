package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/medsynth/medsynth/pkg/models"
)

// Config holds all medsynth configuration.
type Config struct {
	Model      models.ModelConfig    `yaml:"model"`
	Cache      CacheConfig           `yaml:"cache"`
	Generation GenerationConfig      `yaml:"generation"`
	Tracker    TrackerConfig         `yaml:"tracker"`
	Budgets    []models.BudgetPolicy `yaml:"budgets"`
	Audit      models.AuditConfig    `yaml:"audit"`
	Log        LogConfig             `yaml:"log"`
}

// CacheConfig controls the generation cache and selects its backend.
// Backend is "auto" (default), "file", "sqlite" or "redis".
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	Backend  string        `yaml:"backend"`
	Dir      string        `yaml:"dir"`
	DBPath   string        `yaml:"db_path"`
	RedisURL string        `yaml:"redis_url"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// GenerationConfig tunes the model calls.
type GenerationConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TrackerConfig controls token usage tracking. An empty DBPath disables it.
type TrackerConfig struct {
	DBPath string `yaml:"db_path"`
}

// LogConfig controls logging. Format is "console" or "json".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Model: models.ModelConfig{
			APIVersion: "2024-10-21",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
			Backend: "auto",
			Dir:     ".medsynth/cache",
			DBPath:  ".medsynth/cache.db",
		},
		Generation: GenerationConfig{
			MaxAttempts:    3,
			Temperature:    0.7,
			MaxTokens:      4096,
			RequestTimeout: 60 * time.Second,
		},
		Tracker: TrackerConfig{
			DBPath: ".medsynth/usage.db",
		},
		Audit: models.AuditConfig{
			DBPath:        ".medsynth/audit.db",
			RetentionDays: 30,
			MaxBodySize:   65536,
			Include:       []string{"prompts", "responses"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv fills empty model fields from the AZURE_OPENAI_* variables.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	set(&c.Model.Endpoint, "AZURE_OPENAI_ENDPOINT")
	set(&c.Model.APIKey, "AZURE_OPENAI_API_KEY")
	set(&c.Model.DeploymentName, "AZURE_OPENAI_DEPLOYMENT")
	if v := os.Getenv("AZURE_OPENAI_API_VERSION"); v != "" {
		c.Model.APIVersion = v
	}
}
