package models

import "strings"

// Chat roles accepted by the completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat constrains the shape of the model output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatCompletionRequest is the body posted to a deployment's chat/completions endpoint.
// The deployment is addressed by URL, so no model field is sent.
type ChatCompletionRequest struct {
	Messages            []ChatMessage   `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
	ResponseFormat      *ResponseFormat `json:"response_format,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
}

// ChatCompletionResponse is an OpenAI-compatible chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// CompletionResult is the outcome of one completion round-trip. It is consumed
// immediately by the caller and never cached.
type CompletionResult struct {
	RawText      string `json:"raw_text"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// ModelConfig addresses a chat-completion deployment.
type ModelConfig struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	APIKey         string `json:"apiKey" yaml:"api_key"`
	DeploymentName string `json:"deploymentName" yaml:"deployment_name"`
	APIVersion     string `json:"apiVersion,omitempty" yaml:"api_version"`
}

// Redacted returns a copy that is safe to print.
func (c ModelConfig) Redacted() ModelConfig {
	c.APIKey = MaskSecret(c.APIKey)
	return c
}

// MaskSecret keeps the first four characters of a secret and masks the rest.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
