package fallback

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BreakerState is one circuit breaker state
type BreakerState string

const (
	// BreakerClosed admits all requests
	BreakerClosed BreakerState = "closed"

	// BreakerOpen rejects requests until the blacklist period expires
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen admits probe requests after an open period expires
	BreakerHalfOpen BreakerState = "half-open"
)

// defaultFailureThreshold opens the breaker after this many consecutive
// failures
const defaultFailureThreshold = 3

// CircuitBreaker blacklists a repeatedly failing strategy. The open duration
// grows exponentially with each re-opening up to a cap, and an expired
// blacklist resets the failure counter and admits a probe.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold    int
	state               BreakerState
	consecutiveFailures int
	openUntil           time.Time
	delays              *backoff.ExponentialBackOff

	// now is replaceable for tests
	now func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures, blacklisting for initialDelay growing up to maxDelay
func NewCircuitBreaker(threshold int, initialDelay, maxDelay time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = defaultFailureThreshold
	}
	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = initialDelay
	delays.MaxInterval = maxDelay
	delays.MaxElapsedTime = 0
	delays.RandomizationFactor = 0
	delays.Reset()

	return &CircuitBreaker{
		failureThreshold: threshold,
		state:            BreakerClosed,
		delays:           delays,
		now:              time.Now,
	}
}

// Allow reports whether a request may proceed, transitioning an expired open
// breaker to half-open
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if b.now().Before(b.openUntil) {
			return false
		}
		b.state = BreakerHalfOpen
		b.consecutiveFailures = 0
		return true
	}
	return true
}

// RecordSuccess closes the breaker and resets the blacklist duration growth
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.consecutiveFailures = 0
	b.delays.Reset()
}

// RecordFailure counts a failure, opening the breaker when the threshold is
// reached. A half-open probe failure re-opens immediately with a longer
// blacklist.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++

	if b.state == BreakerHalfOpen || b.consecutiveFailures >= b.failureThreshold {
		b.state = BreakerOpen
		b.openUntil = b.now().Add(b.delays.NextBackOff())
	}
}

// State returns the current breaker state
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak
func (b *CircuitBreaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}
