package resilience

import (
	"sync"
	"time"
)

// Config sets the breaker policy shared by every breaker the registry
// creates.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultConfig returns the stock breaker policy.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		RecoveryTimeout:  DefaultRecoveryTimeout,
	}
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock replaces the time source, used by tests to step through
// recovery timeouts.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry owns one breaker per logical resource name. One resource's
// failures never throttle another's calls.
type Registry struct {
	config Config
	now    func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a breaker registry. Zero config fields fall back to
// the defaults.
func NewRegistry(config Config, opts ...Option) *Registry {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultFailureThreshold
	}

	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = DefaultRecoveryTimeout
	}

	registry := &Registry{
		config:   config,
		now:      time.Now,
		breakers: make(map[string]*Breaker),
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// Breaker returns the breaker for a resource name, creating it on first
// use.
func (r *Registry) Breaker(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	breaker, ok := r.breakers[name]
	if !ok {
		breaker = newBreaker(name, r.config.FailureThreshold, r.config.RecoveryTimeout, r.now)
		r.breakers[name] = breaker
	}

	return breaker
}

// Stats returns snapshots for every breaker the registry has created.
func (r *Registry) Stats() []BreakerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]BreakerStats, 0, len(r.breakers))
	for _, breaker := range r.breakers {
		stats = append(stats, breaker.Stats())
	}

	return stats
}
