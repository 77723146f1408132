package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func fastPolicy(breaker string) Policy {
	return Policy{
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		Breaker:    breaker,
	}
}

func TestRetry_InvokesAtMostMaxRetriesPlusOne(t *testing.T) {
	registry := NewRegistry(DefaultConfig())
	opErr := errors.New("sender unavailable")

	calls := 0
	err := registry.Retry(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++

		return opErr
	})

	assert.Equal(t, 4, calls)
	// The final underlying error surfaces unchanged.
	assert.Same(t, opErr, err)
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	registry := NewRegistry(DefaultConfig())

	calls := 0
	err := registry.Retry(context.Background(), Policy{MaxRetries: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelStopsRetrying(t *testing.T) {
	registry := NewRegistry(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := registry.Retry(ctx, Policy{MaxRetries: 10, BaseDelay: time.Minute}, func(context.Context) error {
		calls++
		cancel()

		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelay_Exponential(t *testing.T) {
	policy := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Exponential: true}

	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 0))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(policy, 1))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(policy, 2))
	assert.Equal(t, 800*time.Millisecond, backoffDelay(policy, 3))
	// Capped at MaxDelay from here on.
	assert.Equal(t, time.Second, backoffDelay(policy, 4))
	assert.Equal(t, time.Second, backoffDelay(policy, 10))
}

func TestBackoffDelay_Constant(t *testing.T) {
	policy := Policy{BaseDelay: 250 * time.Millisecond}

	for attempt := range 5 {
		assert.Equal(t, 250*time.Millisecond, backoffDelay(policy, attempt))
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistry(Config{FailureThreshold: 10, RecoveryTimeout: 15 * time.Second}, WithClock(clock.Now))

	opErr := errors.New("smtp down")
	calls := 0
	op := func(context.Context) error {
		calls++

		return opErr
	}

	for range 10 {
		err := registry.Retry(context.Background(), fastPolicy("email-sender"), op)
		assert.Same(t, opErr, err)
	}

	assert.Equal(t, 10, calls)
	assert.Equal(t, StateOpen, registry.Breaker("email-sender").Stats().State)

	// Rejected without invoking the operation.
	err := registry.Retry(context.Background(), fastPolicy("email-sender"), op)
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
	assert.Equal(t, 10, calls)
}

func TestBreaker_HalfOpenTrialSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistry(Config{FailureThreshold: 3, RecoveryTimeout: 15 * time.Second}, WithClock(clock.Now))

	for range 3 {
		_ = registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
			return errors.New("gateway timeout")
		})
	}

	require.Equal(t, StateOpen, registry.Breaker("sms-sender").Stats().State)

	clock.Advance(15 * time.Second)

	err := registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
		return nil
	})

	require.NoError(t, err)

	stats := registry.Breaker("sms-sender").Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 0, stats.FailureCount)
}

func TestBreaker_HalfOpenTrialFailureReopens(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistry(Config{FailureThreshold: 3, RecoveryTimeout: 15 * time.Second}, WithClock(clock.Now))

	for range 3 {
		_ = registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
			return errors.New("gateway timeout")
		})
	}

	clock.Advance(15 * time.Second)

	trialErr := errors.New("still down")
	err := registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
		return trialErr
	})
	assert.Same(t, trialErr, err)
	assert.Equal(t, StateOpen, registry.Breaker("sms-sender").Stats().State)

	// The recovery clock restarted: still rejected before the timeout.
	clock.Advance(10 * time.Second)

	err = registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
		return nil
	})
	assert.True(t, IsCircuitOpen(err))

	clock.Advance(5 * time.Second)

	err = registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: time.Second}, WithClock(clock.Now))
	breaker := registry.Breaker("webhook")

	breaker.RecordFailure()
	clock.Advance(time.Second)

	require.NoError(t, breaker.Allow())
	// A concurrent caller is rejected while the trial is in flight.
	assert.True(t, IsCircuitOpen(breaker.Allow()))

	breaker.RecordSuccess()
	assert.NoError(t, breaker.Allow())
}

func TestBreaker_SuccessResetsFailureCountWhileClosed(t *testing.T) {
	registry := NewRegistry(Config{FailureThreshold: 10, RecoveryTimeout: time.Second})
	breaker := registry.Breaker("sms-sender")

	for range 9 {
		breaker.RecordFailure()
	}

	require.Equal(t, 9, breaker.Stats().FailureCount)

	breaker.RecordSuccess()
	assert.Equal(t, 0, breaker.Stats().FailureCount)
	assert.Equal(t, StateClosed, breaker.Stats().State)
}

func TestRegistry_BreakersAreIndependent(t *testing.T) {
	registry := NewRegistry(Config{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	for range 2 {
		_ = registry.Retry(context.Background(), fastPolicy("sms-sender"), func(context.Context) error {
			return errors.New("down")
		})
	}

	require.Equal(t, StateOpen, registry.Breaker("sms-sender").Stats().State)

	// The email breaker is unaffected.
	err := registry.Retry(context.Background(), fastPolicy("email-sender"), func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}
