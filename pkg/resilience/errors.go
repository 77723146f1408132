package resilience

import (
	"errors"
	"fmt"
	"time"
)

// CircuitOpenError is returned when a call is rejected without invoking the
// operation because the named breaker is open. It is distinguishable from
// ordinary step failures in run diagnostics.
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open (retry after %s)", e.Name, e.RetryAfter.Round(time.Millisecond))
}

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError

	return errors.As(err, &coe)
}
