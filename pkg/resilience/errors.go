package resilience

import (
	"errors"
	"fmt"
)

// RateLimitError represents a provider rate limit or quota response.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rate limit"
}

// AuthError represents a provider rejecting the request credentials
// (HTTP 401/403 or an equivalent protocol-level code).
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unauthorized"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, msg, e.StatusCode)
	}
	return e.Provider + ": " + msg
}

// IsRateLimit returns true when the error is a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

// IsAuth returns true when the error is an AuthError.
func IsAuth(err error) bool {
	var ae AuthError
	return errors.As(err, &ae)
}
