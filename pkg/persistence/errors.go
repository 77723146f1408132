package persistence

import "errors"

// Sentinel errors shared by every store implementation.
var (
	// ErrWorkflowNotFound indicates no workflow exists for the identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates no execution record exists for the
	// identifier.
	ErrExecutionNotFound = errors.New("execution record not found")

	// ErrEntityNotFound indicates the referenced business entity does not
	// exist (or belongs to another tenant).
	ErrEntityNotFound = errors.New("entity not found")

	// ErrExecutionFinalized indicates an attempt to finalize an execution
	// record a second time.
	ErrExecutionFinalized = errors.New("execution record already finalized")
)

// IsWorkflowNotFound reports whether err means a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound reports whether err means a missing execution record.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsEntityNotFound reports whether err means a missing business entity.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
