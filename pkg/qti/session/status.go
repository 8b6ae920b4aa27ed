package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a completion status would move backwards
// or leave the terminal state.
var ErrInvalidTransition = errors.New("invalid completion status transition")

// Status is the completion status of an item session.
type Status string

const (
	StatusNotAttempted Status = "not_attempted"
	StatusUnknown      Status = "unknown"
	StatusIncomplete   Status = "incomplete"
	StatusCompleted    Status = "completed"
)

// ParseStatus converts a completionStatus identifier into a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusNotAttempted, StatusUnknown, StatusIncomplete, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// rank orders statuses; unknown and incomplete share a rank.
func (s Status) rank() int {
	switch s {
	case StatusNotAttempted:
		return 0
	case StatusUnknown, StatusIncomplete:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// IsTerminal returns true for completed.
func (s Status) IsTerminal() bool { return s == StatusCompleted }

// Transition returns the status after moving from s to next. Statuses only
// move forward: not_attempted, then unknown or incomplete, then completed.
// Moving between unknown and incomplete is allowed, staying put is a no-op.
func (s Status) Transition(next Status) (Status, error) {
	if next.rank() < 0 {
		return s, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if s == next {
		return s, nil
	}
	if s.IsTerminal() || next.rank() < s.rank() {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}
