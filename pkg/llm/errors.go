package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderError wraps a capability service failure with a retryability hint.
type ProviderError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ContentPolicyError signals a content-policy rejection. Retryable after
// prompt sanitization, bounded by the stage's retry budget.
type ContentPolicyError struct {
	Provider string
	Terms    []string // flagged terms, when the provider reports them
	Err      error
}

func (e *ContentPolicyError) Error() string {
	return fmt.Sprintf("%s content policy rejection: %v", e.Provider, e.Err)
}

func (e *ContentPolicyError) Unwrap() error { return e.Err }

// RateLimitError signals a 429-style rejection. Retryable with backoff.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// ValidationError signals locally detected malformed output, e.g. a structured
// completion that does not unmarshal. Retried once by re-prompting.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return "validation failed: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried at the stage layer.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsRateLimit reports whether err is a rate-limit rejection.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsContentPolicy reports whether err is a content-policy rejection.
func IsContentPolicy(err error) bool {
	var cp *ContentPolicyError
	return errors.As(err, &cp)
}

// Classify converts a raw provider error into the typed taxonomy based on
// the response text. The genai SDK surfaces HTTP status in the message.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return &RateLimitError{Provider: provider, Err: err}
	case strings.Contains(msg, "safety") || strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "content policy") || strings.Contains(msg, "prohibited"):
		return &ContentPolicyError{Provider: provider, Err: err}
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "invalid_api_key") || strings.Contains(msg, "400"):
		return &ProviderError{Provider: provider, Transient: false, Err: err}
	default:
		// Timeouts, 5xx, connection resets.
		return &ProviderError{Provider: provider, Transient: true, Err: err}
	}
}
