package store

import (
	"errors"
	"strings"
)

// LockedMessage is the user-facing message for mutations rejected by the
// lock guard.
const LockedMessage = "This task is locked and cannot be modified."

var (
	// ErrNotFound is returned when no task with the requested id exists.
	ErrNotFound = errors.New("task not found")

	// ErrLocked is returned when a mutation targets a locked task.
	ErrLocked = errors.New(LockedMessage)
)

// ValidationError reports a malformed or incomplete payload along with the
// offending field names (JSON names, e.g. "title").
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid task payload: " + strings.Join(e.Fields, ", ")
}
