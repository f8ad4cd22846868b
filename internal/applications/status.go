package applications

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Status is the lifecycle state of an application.
type Status string

// Lifecycle states. Approved, declined, and cancelled are terminal.
const (
	StatusPending   Status = "pending"
	StatusScoring   Status = "scoring"
	StatusReview    Status = "review"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
)

var statuses = []Status{
	StatusPending,
	StatusScoring,
	StatusReview,
	StatusApproved,
	StatusDeclined,
	StatusCancelled,
}

// Actor identifies the caller requesting a transition.
type Actor string

// Known actors. Internal actors are automated subsystems such as scoring.
const (
	ActorPublic   Actor = "public"
	ActorInternal Actor = "internal"
)

// edges maps each allowed transition to whether it is restricted to internal actors.
var edges = map[Status]map[Status]bool{
	StatusPending: {
		StatusCancelled: false,
		StatusScoring:   true,
	},
	StatusScoring: {
		StatusReview:   true,
		StatusApproved: true,
		StatusDeclined: true,
	},
	StatusReview: {
		StatusApproved: false,
		StatusDeclined: false,
	},
}

var (
	// ErrInvalidStatus indicates a status value outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition indicates a status change that is not an allowed edge.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInternalOnly indicates an allowed edge that only internal actors may take.
	ErrInternalOnly = errors.New("transition restricted to internal actors")
	// ErrNotEditable indicates a field edit on an application that is no longer pending.
	ErrNotEditable = errors.New("application is not editable")
)

// TransitionError reports a rejected status change.
// It matches ErrInvalidTransition, and additionally ErrInternalOnly when the edge
// exists but the actor may not take it.
type TransitionError struct {
	From         Status
	To           Status
	InternalOnly bool
}

func (e *TransitionError) Error() string {
	if e.InternalOnly {
		return fmt.Sprintf("transition %s -> %s is restricted to internal actors", e.From, e.To)
	}
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Is matches ErrInvalidTransition, and ErrInternalOnly for restricted edges.
func (e *TransitionError) Is(target error) bool {
	if target == ErrInvalidTransition {
		return true
	}
	return e.InternalOnly && target == ErrInternalOnly
}

// NotEditableError reports a field edit attempted outside the pending state.
type NotEditableError struct {
	Status Status
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("application is not editable in status %s", e.Status)
}

func (e *NotEditableError) Unwrap() error {
	return ErrNotEditable
}

// Statuses returns the list of known statuses.
func Statuses() []Status {
	return statuses
}

// ParseStatus validates a string as a known status.
func ParseStatus(s string) (Status, error) {
	v := Status(s)
	if !slices.Contains(statuses, v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return v, nil
}

// UnmarshalJSON validates that the decoded string is a known status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDeclined || s == StatusCancelled
}

// ValidateTransition checks that actor may move an application from one status to another.
// A same-state change is a no-op and always succeeds for known statuses.
func ValidateTransition(from, to Status, actor Actor) error {
	if _, err := ParseStatus(string(from)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(to)); err != nil {
		return err
	}

	if from == to {
		return nil
	}

	internalOnly, ok := edges[from][to]
	if !ok {
		return &TransitionError{From: from, To: to}
	}

	if internalOnly && actor != ActorInternal {
		return &TransitionError{From: from, To: to, InternalOnly: true}
	}

	return nil
}

// CanEdit reports whether field edits are permitted in the current status.
func CanEdit(current Status) error {
	if current != StatusPending {
		return &NotEditableError{Status: current}
	}
	return nil
}
