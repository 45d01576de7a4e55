package crud

import (
	"errors"
	"fmt"
)

// ModalState is the lifecycle state of an add or edit form.
type ModalState string

const (
	StateClosed     ModalState = "closed"
	StateOpen       ModalState = "open"
	StateSubmitting ModalState = "submitting"
)

var (
	// ErrSubmitting is returned when a form is changed or submitted while a
	// submit is already in flight.
	ErrSubmitting = errors.New("form is already submitting")
	// ErrClosed is returned for any action on a closed form.
	ErrClosed = errors.New("form is closed")
)

// modalTransitions: a failed submit returns to open so the user can fix the
// input; closing mid-submit does not cancel the in-flight write.
var modalTransitions = map[ModalState][]ModalState{
	StateClosed:     {StateOpen},
	StateOpen:       {StateSubmitting, StateClosed},
	StateSubmitting: {StateClosed, StateOpen},
}

// ValidateTransition checks whether transitioning from current to target is
// allowed according to the given transition map. It returns nil if the
// transition is valid, or a descriptive error otherwise.
func ValidateTransition(transitions map[ModalState][]ModalState, current, target ModalState) error {
	allowed, ok := transitions[current]
	if !ok {
		return fmt.Errorf("unknown current state: %s", current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("transition from %q to %q is not allowed", current, target)
}
