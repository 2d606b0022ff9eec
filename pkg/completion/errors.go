package completion

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or malformed model configuration.
// It is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid model configuration: %s %s", e.Field, e.Reason)
}

// TransportError reports a failed HTTP exchange. StatusCode is zero when no
// response was received.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("completion request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("completion response with status %d unusable: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("completion endpoint returned status %d: %s", e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// EmptyResponseError reports a successful response carrying no choices.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string {
	return "completion endpoint returned no choices"
}

// redact removes every occurrence of secret from s.
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}
