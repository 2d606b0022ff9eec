// Package retry turns single completion round-trips into a structured JSON
// object, re-asking the model a bounded number of times.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/models"
)

const (
	// DefaultMaxAttempts applies when a request leaves MaxAttempts at zero.
	DefaultMaxAttempts = 3
	// DefaultTemperature is the sampling temperature for structured output.
	DefaultTemperature = 0.7
	// DefaultMaxTokens caps the completion length.
	DefaultMaxTokens = 4096
	// DefaultStep is the linear backoff unit: attempt n waits n*DefaultStep.
	DefaultStep = time.Second

	snippetLen = 80
)

// Request describes one structured generation run.
type Request struct {
	Config       models.ModelConfig
	Prompt       string
	SystemPrompt string
	MaxAttempts  int
	Temperature  float64
	MaxTokens    int
	// OnUsage, when set, is called after every attempt that reached the model.
	OnUsage func(attempt int, usage models.Usage)
}

// Result is a successfully parsed object plus run accounting.
type Result struct {
	Data     map[string]any
	Attempts int
	Usage    models.Usage
}

type status int

const (
	statusOK status = iota
	statusRetryable
	statusFatal
)

func (s status) String() string {
	switch s {
	case statusOK:
		return "ok"
	case statusRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// attempt is the tagged outcome of a single round-trip.
type attempt struct {
	status status
	data   map[string]any
	usage  models.Usage
	err    error
}

// Orchestrator runs the attempt loop.
type Orchestrator struct {
	completer   completion.Completer
	step        time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	temperature float64
	maxTokens   int
	maxAttempts int
	logger      zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStep sets the linear backoff unit.
func WithStep(d time.Duration) Option {
	return func(o *Orchestrator) { o.step = d }
}

// WithSleep replaces the context-aware wait used between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithDefaults sets the values used when a Request leaves them at zero.
func WithDefaults(maxAttempts int, temperature float64, maxTokens int) Option {
	return func(o *Orchestrator) {
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
		if temperature > 0 {
			o.temperature = temperature
		}
		if maxTokens > 0 {
			o.maxTokens = maxTokens
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator around completer.
func New(completer completion.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		completer:   completer,
		step:        DefaultStep,
		sleep:       sleepContext,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		maxAttempts: DefaultMaxAttempts,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GenerateStructured asks the model for a JSON object up to maxAttempts
// times and returns the first one that parses.
func (o *Orchestrator) GenerateStructured(ctx context.Context, cfg models.ModelConfig, prompt, systemPrompt string, maxAttempts int) (map[string]any, error) {
	res, err := o.GenerateStructuredWith(ctx, Request{
		Config:       cfg,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxAttempts:  maxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// GenerateStructuredWith is GenerateStructured with full control over
// sampling and usage reporting.
func (o *Orchestrator) GenerateStructuredWith(ctx context.Context, req Request) (*Result, error) {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = o.maxAttempts
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = o.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.maxTokens
	}

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: req.SystemPrompt},
		{Role: models.RoleUser, Content: req.Prompt},
	}

	var total models.Usage
	var last error
	for n := 1; n <= maxAttempts; n++ {
		a := o.try(ctx, messages, req.Config, temperature, maxTokens)
		total.Add(a.usage)
		if req.OnUsage != nil && a.usage.TotalTokens > 0 {
			req.OnUsage(n, a.usage)
		}

		switch a.status {
		case statusOK:
			return &Result{Data: a.data, Attempts: n, Usage: total}, nil
		case statusFatal:
			return nil, a.err
		}

		last = a.err
		o.logger.Warn().Err(a.err).
			Int("attempt", n).
			Int("max_attempts", maxAttempts).
			Str("status", a.status.String()).
			Msg("structured generation attempt failed")

		if n < maxAttempts {
			if err := o.sleep(ctx, time.Duration(n)*o.step); err != nil {
				return nil, err
			}
		}
	}
	return nil, &ExhaustedError{Attempts: maxAttempts, Last: last}
}

func (o *Orchestrator) try(ctx context.Context, messages []models.ChatMessage, cfg models.ModelConfig, temperature float64, maxTokens int) attempt {
	res, err := o.completer.Complete(ctx, messages, cfg, temperature, maxTokens)
	if err != nil {
		return attempt{status: classify(ctx, err), err: err}
	}

	text := stripFences(res.RawText)
	if text == "" {
		return attempt{status: statusRetryable, usage: res.Usage, err: &completion.EmptyResponseError{}}
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return attempt{status: statusRetryable, usage: res.Usage, err: &ParseError{Snippet: snippet(text), Err: err}}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return attempt{status: statusRetryable, usage: res.Usage, err: &StructuralError{Got: jsonKind(parsed)}}
	}
	return attempt{status: statusOK, data: obj, usage: res.Usage}
}

func classify(ctx context.Context, err error) status {
	var ce *completion.ConfigurationError
	if errors.As(err, &ce) {
		return statusFatal
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return statusFatal
	}
	return statusRetryable
}

// stripFences removes a surrounding markdown code fence, which some
// deployments emit even in JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen]
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "value"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
