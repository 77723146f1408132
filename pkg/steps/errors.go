package steps

import (
	"errors"
	"fmt"
)

// TerminalError marks a step failure that retrying cannot fix, such as a
// missing contact on the target entity. The resilience layer never sees it.
type TerminalError struct {
	StepID string
	Reason string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("step %s failed terminally: %s", e.StepID, e.Reason)
}

// IsTerminal reports whether err is a terminal step error.
func IsTerminal(err error) bool {
	var terminal *TerminalError

	return errors.As(err, &terminal)
}
