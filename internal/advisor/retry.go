package advisor

import (
	"strings"
	"time"
)

// RetryConfig bounds the retry loop around model calls.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns sensible defaults for hosted LLM APIs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Delay:      500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// retryableError reports whether an error is transient enough to retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	message := err.Error()

	// Rate limits.
	if containsAny(message, "rate limit", "quota exceeded", "429") {
		return true
	}
	// Transient server errors.
	if containsAny(message, "500", "502", "503", "504", "unavailable") {
		return true
	}
	// Network errors.
	if containsAny(message, "connection reset", "timeout", "temporary") {
		return true
	}

	return false
}

func containsAny(s string, substrings ...string) bool {
	lower := strings.ToLower(s)
	for _, substring := range substrings {
		if strings.Contains(lower, substring) {
			return true
		}
	}
	return false
}
