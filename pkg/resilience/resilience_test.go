package resilience

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	auth := fmt.Errorf("synthesize: %w", AuthError{Provider: "elevenlabs", StatusCode: 401})
	assert.True(t, IsAuth(auth))
	assert.False(t, IsRateLimit(auth))
	assert.Contains(t, auth.Error(), "status 401")

	rl := fmt.Errorf("synthesize: %w", RateLimitError{Provider: "elevenlabs", Message: "429 Too Many Requests"})
	assert.True(t, IsRateLimit(rl))
	assert.False(t, IsAuth(rl))
}

func TestCircuitBreakerOpensOnProviderRejections(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.OnError(errors.New("connection reset"))
	cb.OnError(errors.New("connection reset"))
	require.True(t, cb.Allow(), "transient errors must not open the breaker")

	cb.OnError(AuthError{Provider: "elevenlabs"})
	require.True(t, cb.Allow())
	cb.OnError(RateLimitError{Provider: "elevenlabs"})
	require.False(t, cb.Allow())

	now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())

	cb.OnSuccess()
	cb.OnError(AuthError{Provider: "elevenlabs"})
	require.True(t, cb.Allow())
}
