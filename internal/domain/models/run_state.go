package models

import "fmt"

// RunTransition represents a run state transition
type RunTransition struct {
	From RunStatus
	To   RunStatus
}

// validRunTransitions defines the allowed run lifecycle edges.
// Completed and failed are terminal.
var validRunTransitions = map[RunTransition]bool{
	{RunStatusPending, RunStatusRunning}:   true,
	{RunStatusRunning, RunStatusCompleted}: true,
	{RunStatusRunning, RunStatusFailed}:    true,
}

// ValidateRunTransition checks if a run state transition is valid
func ValidateRunTransition(from, to RunStatus) error {
	if from == to {
		return nil
	}

	if !validRunTransitions[RunTransition{From: from, To: to}] {
		return NewInvalidRunTransitionError(from, to)
	}

	return nil
}

// IsValidRunTransition checks if a transition between two run states is valid
func IsValidRunTransition(from, to RunStatus) bool {
	return ValidateRunTransition(from, to) == nil
}

// InvalidRunTransitionError represents an error for invalid run state transitions
type InvalidRunTransitionError struct {
	From RunStatus
	To   RunStatus
}

func (e *InvalidRunTransitionError) Error() string {
	return fmt.Sprintf("invalid run state transition from '%s' to '%s'", e.From, e.To)
}

// NewInvalidRunTransitionError creates a new InvalidRunTransitionError
func NewInvalidRunTransitionError(from, to RunStatus) *InvalidRunTransitionError {
	return &InvalidRunTransitionError{From: from, To: to}
}
