package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func frozenBreaker(threshold int) (*CircuitBreaker, *time.Time) {
	breaker := NewCircuitBreaker(threshold, time.Second, time.Minute)
	current := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	breaker.now = func() time.Time { return current }
	return breaker, &current
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	breaker, _ := frozenBreaker(3)

	assert.Equal(t, BreakerClosed, breaker.State())
	breaker.RecordFailure()
	breaker.RecordFailure()
	assert.Equal(t, BreakerClosed, breaker.State())
	assert.True(t, breaker.Allow())

	breaker.RecordFailure()
	assert.Equal(t, BreakerOpen, breaker.State())
	assert.False(t, breaker.Allow())
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	breaker, _ := frozenBreaker(3)

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordSuccess()
	assert.Equal(t, 0, breaker.ConsecutiveFailures())

	breaker.RecordFailure()
	breaker.RecordFailure()
	assert.Equal(t, BreakerClosed, breaker.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	breaker, current := frozenBreaker(2)

	breaker.RecordFailure()
	breaker.RecordFailure()
	assert.False(t, breaker.Allow())

	// The first open period is the initial delay; once it expires the next
	// request is admitted as a probe.
	*current = current.Add(1100 * time.Millisecond)
	assert.True(t, breaker.Allow())
	assert.Equal(t, BreakerHalfOpen, breaker.State())

	// Probe success closes the breaker for good.
	breaker.RecordSuccess()
	assert.Equal(t, BreakerClosed, breaker.State())
	assert.True(t, breaker.Allow())
}

func TestBreakerHalfOpenFailureReopensLonger(t *testing.T) {
	breaker, current := frozenBreaker(2)

	breaker.RecordFailure()
	breaker.RecordFailure()
	*current = current.Add(1100 * time.Millisecond)
	assert.True(t, breaker.Allow())

	// A failing probe re-opens immediately with a grown blacklist period,
	// so the breaker is still open after another initial delay.
	breaker.RecordFailure()
	assert.Equal(t, BreakerOpen, breaker.State())
	*current = current.Add(1100 * time.Millisecond)
	assert.False(t, breaker.Allow())
}
