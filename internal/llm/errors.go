package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorType classifies provider errors so the agent can decide on retries.
type ErrorType string

const (
	ErrorTypeRateLimit          ErrorType = "rate_limit"          // 429 - too many requests
	ErrorTypeQuotaExceeded      ErrorType = "quota_exceeded"      // resource exhausted
	ErrorTypeInsufficientCredit ErrorType = "insufficient_credit" // 402 - no balance
	ErrorTypeProviderDown       ErrorType = "provider_down"       // 5xx - upstream issue
	ErrorTypeAuth               ErrorType = "auth"                // 401 - bad API key
	ErrorTypeModeration         ErrorType = "moderation"          // 403 - content flagged
	ErrorTypeUnknown            ErrorType = "unknown"             // Fallback
)

// ProviderError is a structured error returned by LLM clients
type ProviderError struct {
	Type       ErrorType      // Classification
	Provider   string         // "gemini", "openrouter"
	Code       string         // Raw status or error code ("429", "RESOURCE_EXHAUSTED")
	Message    string         // Human-readable message
	RetryAfter *time.Duration // How long to wait (if known)
	Retryable  bool           // Should we auto-retry?
	Err        error          // underlying transport error, if any
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap allows errors.Is/As to reach the transport error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError checks if err is a ProviderError and returns it
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// NewProviderError creates a new ProviderError with the given parameters
func NewProviderError(provider string, errType ErrorType, code, message string) *ProviderError {
	return &ProviderError{
		Type:      errType,
		Provider:  provider,
		Code:      code,
		Message:   message,
		Retryable: errType == ErrorTypeRateLimit || errType == ErrorTypeProviderDown,
	}
}

// ClassifyStatus maps an HTTP status code onto a ProviderError.
func ClassifyStatus(provider string, status int, message string) *ProviderError {
	var t ErrorType
	switch {
	case status == http.StatusTooManyRequests && strings.Contains(strings.ToLower(message), "quota"):
		// exhausted quotas don't clear within a retry window
		t = ErrorTypeQuotaExceeded
	case status == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case status == http.StatusPaymentRequired:
		t = ErrorTypeInsufficientCredit
	case status == http.StatusUnauthorized:
		t = ErrorTypeAuth
	case status == http.StatusForbidden:
		t = ErrorTypeModeration
	case status >= 500:
		t = ErrorTypeProviderDown
	default:
		t = ErrorTypeUnknown
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return NewProviderError(provider, t, strconv.Itoa(status), message)
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	pe, ok := IsProviderError(err)
	return ok && pe.Retryable
}
