package models

import "time"

// Usage represents token usage from an LLM response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage into u.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// UsageRecord tracks token usage for one entity generation.
type UsageRecord struct {
	ID               int64      `json:"id"`
	EntityKind       EntityKind `json:"entity_kind"`
	Deployment       string     `json:"deployment"`
	Attempts         int        `json:"attempts"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	CreatedAt        time.Time  `json:"created_at"`
}

// UsageSummary aggregates usage across generations.
type UsageSummary struct {
	EntityKind      EntityKind `json:"entity_kind"`
	Deployment      string     `json:"deployment"`
	RequestCount    int        `json:"request_count"`
	TotalAttempts   int        `json:"total_attempts"`
	TotalPrompt     int        `json:"total_prompt"`
	TotalCompletion int        `json:"total_completion"`
	TotalTokens     int        `json:"total_tokens"`
}
