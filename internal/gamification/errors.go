package gamification

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated indicates no valid user id was supplied.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound indicates the referenced row does not exist for the
	// acting user. Rows owned by other users are reported as not found,
	// never as forbidden, to avoid leaking their existence.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects invalid input before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PartialWriteError reports a reward-transaction step that failed after
// an earlier write already succeeded. The earlier writes are not rolled
// back; the task-first write ordering means the reconcile worker can
// repair stats and achievement state from the tasks table.
type PartialWriteError struct {
	Step string
	Err  error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("reward transaction failed at step %q: %v", e.Step, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
