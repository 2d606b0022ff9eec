// Package completion performs single chat-completion round-trips against a
// deployment endpoint in JSON-object response mode.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medsynth/medsynth/pkg/models"
)

const (
	// DefaultAPIVersion is used when the configuration leaves it empty.
	DefaultAPIVersion = "2024-10-21"
	// DefaultTimeout bounds one HTTP round-trip.
	DefaultTimeout = 60 * time.Second
	// providerDefaultTemperature is not sent; some deployments reject it explicitly.
	providerDefaultTemperature = 1.0
	// maxErrorBody caps the response body kept on a TransportError.
	maxErrorBody = 2048
)

// Completer is the single-attempt interface consumed by the retry orchestrator.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage, cfg models.ModelConfig, temperature float64, maxTokens int) (*models.CompletionResult, error)
}

// Client is an HTTP chat-completion client.
type Client struct {
	httpClient *http.Client
}

// New creates a Client whose requests time out after timeout. A zero timeout
// selects DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// NewWithHTTPClient creates a Client that uses hc for transport.
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// ValidateConfig checks that cfg can address a deployment.
func ValidateConfig(cfg models.ModelConfig) error {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return &ConfigurationError{Field: "endpoint", Reason: "is required"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &ConfigurationError{Field: "apiKey", Reason: "is required"}
	}
	if strings.TrimSpace(cfg.DeploymentName) == "" {
		return &ConfigurationError{Field: "deploymentName", Reason: "is required"}
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("%q is not a valid http(s) URL", cfg.Endpoint)}
	}
	return nil
}

// CompletionURL builds the chat/completions URL for cfg.
func CompletionURL(cfg models.ModelConfig) string {
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	base := strings.TrimRight(cfg.Endpoint, "/")
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		base, url.PathEscape(cfg.DeploymentName), url.QueryEscape(version))
}

// Complete sends messages to the deployment and returns the text of the first
// choice. It does not interpret the text.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage, cfg models.ModelConfig, temperature float64, maxTokens int) (*models.CompletionResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	reqData := models.ChatCompletionRequest{
		Messages:            messages,
		MaxCompletionTokens: maxTokens,
		ResponseFormat:      &models.ResponseFormat{Type: "json_object"},
	}
	if temperature != providerDefaultTemperature {
		t := temperature
		reqData.Temperature = &t
	}

	body, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, CompletionURL(cfg), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: errors.New(redact(err.Error(), cfg.APIKey))}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: redact(text, cfg.APIKey)}
	}

	var chatResp models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response envelope: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &EmptyResponseError{}
	}

	result := &models.CompletionResult{
		RawText:      chatResp.Choices[0].Message.Content,
		FinishReason: chatResp.Choices[0].FinishReason,
	}
	if chatResp.Usage != nil {
		result.Usage = *chatResp.Usage
	}
	return result, nil
}
