// Package generator produces validated, normalized entities from a
// chat-completion deployment. Every operation follows one flow: check the
// model configuration, consult the cache, ask the model through the retry
// orchestrator, validate against the entity schema, normalize, cache.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/audit"
	"github.com/medsynth/medsynth/pkg/cache"
	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/models"
	"github.com/medsynth/medsynth/pkg/retry"
	"github.com/medsynth/medsynth/pkg/schema"
)

// GenerationError names the entity kind whose generation failed.
type GenerationError struct {
	Kind models.EntityKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Structurer returns a parsed JSON object for a prompt.
type Structurer interface {
	GenerateStructuredWith(ctx context.Context, req retry.Request) (*retry.Result, error)
}

// UsageRecorder receives token usage for each model-backed generation.
type UsageRecorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// BudgetChecker refuses generations once a deployment's token budget is spent.
type BudgetChecker interface {
	Check(ctx context.Context, deployment string, kind models.EntityKind) error
}

// Auditor receives one entry per model-backed generation.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// Generator produces entities. It is safe for concurrent use.
type Generator struct {
	orch        Structurer
	cache       *cache.Cache
	registry    *schema.Registry
	recorder    UsageRecorder
	budget      BudgetChecker
	auditor     Auditor
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string
	maxAttempts int
	temperature float64
	maxTokens   int
}

// Option configures a Generator.
type Option func(*Generator)

// WithRegistry replaces the default schema registry.
func WithRegistry(r *schema.Registry) Option {
	return func(g *Generator) { g.registry = r }
}

// WithRecorder attaches a usage recorder.
func WithRecorder(r UsageRecorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithBudget checks every cache miss against b before calling the model.
func WithBudget(b BudgetChecker) Option {
	return func(g *Generator) { g.budget = b }
}

// WithAuditor attaches an audit log.
func WithAuditor(a Auditor) Option {
	return func(g *Generator) { g.auditor = a }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIDFunc replaces the identifier source used for id fallbacks.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

// WithSampling overrides attempts, temperature and token budget. Zero
// values keep the orchestrator's defaults.
func WithSampling(maxAttempts int, temperature float64, maxTokens int) Option {
	return func(g *Generator) {
		g.maxAttempts = maxAttempts
		g.temperature = temperature
		g.maxTokens = maxTokens
	}
}

// New creates a Generator. c may be nil to disable caching.
func New(orch Structurer, c *cache.Cache, opts ...Option) *Generator {
	g := &Generator{
		orch:     orch,
		cache:    c,
		registry: schema.Default(),
		logger:   zerolog.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// job describes one model-backed generation.
type job struct {
	kind   models.EntityKind
	key    []any
	prompt string
	// prepare runs on the parsed object before validation.
	prepare func(map[string]any)
}

// generate runs the shared pipeline for one entity of type T. normalize
// must be idempotent; it also runs on cache hits so clock-derived fields
// such as a patient's age are current. check returns consistency
// violations as path messages.
func generate[T any](ctx context.Context, g *Generator, cfg models.ModelConfig, j job, normalize func(*T), check func(*T) []string) (*T, error) {
	if err := completion.ValidateConfig(cfg); err != nil {
		return nil, &GenerationError{Kind: j.kind, Err: err}
	}

	key := cache.MakeKey(append([]any{j.kind, cfg.DeploymentName}, j.key...)...)
	log := g.logger.With().Str("kind", string(j.kind)).Str("key", key[:12]).Logger()

	if g.cache != nil {
		var cached T
		if g.cache.Get(ctx, key, &cached) {
			log.Debug().Msg("cache hit")
			normalize(&cached)
			return &cached, nil
		}
	}

	if g.budget != nil {
		if err := g.budget.Check(ctx, cfg.DeploymentName, j.kind); err != nil {
			log.Warn().Err(err).Msg("budget check refused generation")
			return nil, &GenerationError{Kind: j.kind, Err: err}
		}
	}

	started := time.Now()
	var usage models.Usage
	res, err := g.orch.GenerateStructuredWith(ctx, retry.Request{
		Config:       cfg,
		Prompt:       j.prompt,
		SystemPrompt: g.systemPrompt(j.kind),
		MaxAttempts:  g.maxAttempts,
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
		OnUsage:      func(_ int, u models.Usage) { usage.Add(u) },
	})
	attempts := attemptsOf(res, err)
	g.recordUsage(ctx, j.kind, cfg.DeploymentName, attempts, usage)
	logAudit := func(outcome string, cause error) {
		g.writeAudit(ctx, models.AuditEntry{
			EntityKind:  j.kind,
			Deployment:  cfg.DeploymentName,
			KeyHash:     audit.KeyFingerprint(cfg.APIKey),
			CacheKey:    key,
			Prompt:      j.prompt,
			Outcome:     outcome,
			Attempts:    attempts,
			TotalTokens: usage.TotalTokens,
			LatencyMs:   time.Since(started).Milliseconds(),
		}, res, cause)
	}
	if err != nil {
		log.Warn().Err(err).Msg("generation failed")
		logAudit(models.AuditFailed, err)
		return nil, &GenerationError{Kind: j.kind, Err: err}
	}

	if j.prepare != nil {
		j.prepare(res.Data)
	}
	if vr := g.registry.Validate(j.kind, res.Data); !vr.Valid {
		log.Warn().Strs("errors", vr.Errors).Msg("schema validation failed")
		verr := vr.Err(j.kind)
		logAudit(models.AuditInvalid, verr)
		return nil, &GenerationError{Kind: j.kind, Err: verr}
	}

	var entity T
	if err := decode(res.Data, &entity); err != nil {
		logAudit(models.AuditInvalid, err)
		return nil, &GenerationError{Kind: j.kind, Err: err}
	}
	normalize(&entity)
	if check != nil {
		if errs := check(&entity); len(errs) > 0 {
			verr := &schema.SchemaValidationError{Kind: j.kind, Errors: errs}
			logAudit(models.AuditInvalid, verr)
			return nil, &GenerationError{Kind: j.kind, Err: verr}
		}
	}
	logAudit(models.AuditOK, nil)

	if g.cache != nil {
		g.cache.Put(ctx, key, entity)
	}
	log.Info().Int("attempts", res.Attempts).Int("tokens", res.Usage.TotalTokens).Msg("generated")
	return &entity, nil
}

func (g *Generator) recordUsage(ctx context.Context, kind models.EntityKind, deployment string, attempts int, usage models.Usage) {
	if g.recorder == nil || usage.TotalTokens == 0 {
		return
	}
	err := g.recorder.Record(ctx, models.UsageRecord{
		EntityKind:       kind,
		Deployment:       deployment,
		Attempts:         attempts,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreatedAt:        g.now().UTC(),
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("record usage failed")
	}
}

func (g *Generator) writeAudit(ctx context.Context, entry models.AuditEntry, res *retry.Result, cause error) {
	if g.auditor == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = g.now().UTC()
	if res != nil {
		if raw, err := json.Marshal(res.Data); err == nil {
			entry.Response = string(raw)
		}
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := g.auditor.Log(ctx, entry); err != nil {
		g.logger.Warn().Err(err).Msg("write audit entry failed")
	}
}

func attemptsOf(res *retry.Result, err error) int {
	if res != nil {
		return res.Attempts
	}
	var ex *retry.ExhaustedError
	if errors.As(err, &ex) {
		return ex.Attempts
	}
	return 1
}

func decode(data map[string]any, dst any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("re-encode model output: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

func (g *Generator) today() string {
	return g.now().Format(schema.DateLayout)
}
