package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RateLimitError wraps a provider quota error with the delay the provider asked for.
// It satisfies interfaces.RetryHinter so the corpus builder waits at least that long.
type RateLimitError struct {
	Provider ProviderType
	Delay    time.Duration
	Err      error
}

func (e *RateLimitError) Error() string {
	if e.Delay > 0 {
		return fmt.Sprintf("%s rate limited (retry in %s): %v", e.Provider, e.Delay, e.Err)
	}
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// RetryAfter returns the provider-suggested delay, or 0 when none was given
func (e *RateLimitError) RetryAfter() time.Duration {
	return e.Delay
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes, RESOURCE_EXHAUSTED and quota errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(errStr), "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+"?)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a provider error.
// Returns 0 if no delay is found in the error message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// classifyError wraps rate limit errors so callers can honour the suggested delay
func classifyError(provider ProviderType, err error) error {
	if err == nil || !IsRateLimitError(err) {
		return err
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return err
	}
	return &RateLimitError{Provider: provider, Delay: ExtractRetryDelay(err), Err: err}
}
