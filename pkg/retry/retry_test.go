package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/models"
)

// scriptedCompleter replays one step per call and counts calls.
type scriptedCompleter struct {
	steps []step
	calls int
	seen  [][]models.ChatMessage
}

type step struct {
	text string
	err  error
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []models.ChatMessage, _ models.ModelConfig, _ float64, _ int) (*models.CompletionResult, error) {
	s.calls++
	s.seen = append(s.seen, messages)
	st := s.steps[len(s.steps)-1]
	if s.calls <= len(s.steps) {
		st = s.steps[s.calls-1]
	}
	if st.err != nil {
		return nil, st.err
	}
	return &models.CompletionResult{
		RawText: st.text,
		Usage:   models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

var cfg = models.ModelConfig{Endpoint: "https://example.test", APIKey: "k", DeploymentName: "d"}

func noSleep(durations *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*durations = append(*durations, d)
		return nil
	})
}

func TestSuccessOnThirdAttempt(t *testing.T) {
	c := &scriptedCompleter{steps: []step{
		{err: &completion.TransportError{StatusCode: 503, Body: "busy"}},
		{text: "not json at all"},
		{text: `{"firstName":"Jane"}`},
	}}
	var waits []time.Duration
	o := New(c, noSleep(&waits))

	var usageCalls int
	res, err := o.GenerateStructuredWith(context.Background(), Request{
		Config:      cfg,
		Prompt:      "make a patient",
		MaxAttempts: 3,
		OnUsage:     func(int, models.Usage) { usageCalls++ },
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", c.calls)
	}
	if res.Attempts != 3 || res.Data["firstName"] != "Jane" {
		t.Errorf("unexpected result: %+v", res)
	}
	if usageCalls != 2 || res.Usage.TotalTokens != 30 {
		t.Errorf("expected usage from 2 answered attempts, got %d calls / %d tokens", usageCalls, res.Usage.TotalTokens)
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("expected linear backoff 1s,2s, got %v", waits)
	}
}

func TestExhaustion(t *testing.T) {
	c := &scriptedCompleter{steps: []step{{text: "[1,2,3]"}}}
	var waits []time.Duration
	o := New(c, noSleep(&waits))

	_, err := o.GenerateStructured(context.Background(), cfg, "p", "s", 3)
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if c.calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", c.calls)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("message should state attempt count: %s", err)
	}
	var se *StructuralError
	if !errors.As(err, &se) || se.Got != "array" {
		t.Errorf("expected last error to be StructuralError(array), got %v", ex.Last)
	}
	if len(waits) != 2 {
		t.Errorf("expected no wait after the final attempt, got %v", waits)
	}
}

func TestExhaustionOnMalformedJSON(t *testing.T) {
	c := &scriptedCompleter{steps: []step{{text: `{"firstName": "Jane",`}}}
	var waits []time.Duration
	o := New(c, noSleep(&waits))

	_, err := o.GenerateStructured(context.Background(), cfg, "p", "s", 3)
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 3 {
		t.Fatalf("expected ExhaustedError after 3 attempts, got %v", err)
	}
	if c.calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", c.calls)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected last error to be ParseError, got %v", ex.Last)
	}
	if !strings.HasPrefix(pe.Snippet, `{"firstName"`) {
		t.Errorf("expected output snippet, got %q", pe.Snippet)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("message should state attempt count: %s", err)
	}
}

func TestConfigurationErrorIsFatal(t *testing.T) {
	c := &scriptedCompleter{steps: []step{{err: &completion.ConfigurationError{Field: "endpoint", Reason: "is required"}}}}
	var waits []time.Duration
	o := New(c, noSleep(&waits))

	_, err := o.GenerateStructured(context.Background(), cfg, "p", "s", 3)
	var ce *completion.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if c.calls != 1 || len(waits) != 0 {
		t.Errorf("expected a single call and no backoff, got %d calls, waits %v", c.calls, waits)
	}
}

func TestNullAndEmptyAreRetried(t *testing.T) {
	c := &scriptedCompleter{steps: []step{
		{text: "null"},
		{text: "   "},
		{text: "```json\n{\"ok\":true}\n```"},
	}}
	var waits []time.Duration
	data, err := New(c, noSleep(&waits)).GenerateStructured(context.Background(), cfg, "p", "s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if data["ok"] != true || c.calls != 3 {
		t.Errorf("unexpected outcome: %v after %d calls", data, c.calls)
	}
}

func TestCancelDuringBackoff(t *testing.T) {
	c := &scriptedCompleter{steps: []step{{text: "oops"}}}
	ctx, cancel := context.WithCancel(context.Background())
	o := New(c, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := o.GenerateStructured(ctx, cfg, "p", "s", 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.calls != 1 {
		t.Errorf("expected 1 call, got %d", c.calls)
	}
}

func TestMessagesCarrySystemPrompt(t *testing.T) {
	c := &scriptedCompleter{steps: []step{{text: `{}`}}}
	if _, err := New(c).GenerateStructured(context.Background(), cfg, "user prompt", "system prompt", 1); err != nil {
		t.Fatal(err)
	}
	msgs := c.seen[0]
	if len(msgs) != 2 || msgs[0].Role != models.RoleSystem || msgs[0].Content != "system prompt" || msgs[1].Content != "user prompt" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestSleepContextHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep should return immediately once cancelled")
	}
}
