// Package resilience provides bounded retry with backoff and per-resource
// circuit breakers. All breaker state lives in an explicit Registry that is
// constructed at process start and injected into its consumers.
package resilience

import (
	"sync"
	"time"
)

// State is the circuit breaker state machine position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Default breaker policy.
const (
	DefaultFailureThreshold = 10
	DefaultRecoveryTimeout  = 15 * time.Second
)

// Breaker tracks the health of one named external resource. It is shared
// by every run that calls the resource and is safe for concurrent use.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailureAt time.Time
	trialInFlight bool
}

// BreakerStats is a point-in-time snapshot for diagnostics.
type BreakerStats struct {
	Name          string    `json:"name"`
	State         State     `json:"state"`
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
}

func newBreaker(name string, threshold int, recovery time.Duration, now func() time.Time) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: threshold,
		recoveryTimeout:  recovery,
		now:              now,
		state:            StateClosed,
	}
}

// Allow decides whether a call may proceed. While open it rejects with a
// CircuitOpenError until the recovery timeout elapses; the first call after
// that is admitted as the half-open trial and concurrent callers keep
// being rejected until the trial resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		elapsed := b.now().Sub(b.lastFailureAt)
		if elapsed < b.recoveryTimeout {
			return &CircuitOpenError{Name: b.name, RetryAfter: b.recoveryTimeout - elapsed}
		}

		b.state = StateHalfOpen
		b.trialInFlight = true

		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return &CircuitOpenError{Name: b.name, RetryAfter: b.recoveryTimeout}
		}

		b.trialInFlight = true

		return nil
	default:
		return nil
	}
}

// RecordSuccess resets the failure count and, after a successful half-open
// trial, closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.trialInFlight = false
}

// RecordFailure counts a failure. Reaching the threshold while closed, or
// any failure during the half-open trial, opens the breaker and restarts
// the recovery clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureAt = b.now()

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.trialInFlight = false
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.state = StateOpen
		}
	case StateOpen:
		// Already open, nothing to count.
	}
}

// Stats returns a snapshot of the breaker state.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerStats{
		Name:          b.name,
		State:         b.state,
		FailureCount:  b.failureCount,
		LastFailureAt: b.lastFailureAt,
	}
}
