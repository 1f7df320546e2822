package models

import "fmt"

// PromptTransition represents a state transition
type PromptTransition struct {
	From PromptState
	To   PromptState
}

// validPromptTransitions defines the allowed lifecycle edges:
// promote moves a draft into production, demote retires a production
// version, restore brings an archived version back into production.
var validPromptTransitions = map[PromptTransition]bool{
	{PromptStateDraft, PromptStateProduction}:    true,
	{PromptStateProduction, PromptStateArchived}: true,
	{PromptStateArchived, PromptStateProduction}: true,
}

// ValidatePromptTransition checks if a state transition is valid and returns an error if not
func ValidatePromptTransition(from, to PromptState) error {
	if from == to {
		return nil
	}

	if !validPromptTransitions[PromptTransition{From: from, To: to}] {
		return NewInvalidPromptTransitionError(from, to)
	}

	return nil
}

// IsValidPromptTransition checks if a transition between two states is valid
func IsValidPromptTransition(from, to PromptState) bool {
	return ValidatePromptTransition(from, to) == nil
}

// ValidPromptTransitionsFrom returns all valid target states from a given state
func ValidPromptTransitionsFrom(from PromptState) []PromptState {
	states := make([]PromptState, 0)
	for transition := range validPromptTransitions {
		if transition.From == from {
			states = append(states, transition.To)
		}
	}
	return states
}

// InvalidPromptTransitionError represents an error for invalid prompt state transitions
type InvalidPromptTransitionError struct {
	From    PromptState
	To      PromptState
	Message string
}

func (e *InvalidPromptTransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid prompt state transition from '%s' to '%s'", e.From, e.To)
}

// NewInvalidPromptTransitionError creates a new InvalidPromptTransitionError with a descriptive message
func NewInvalidPromptTransitionError(from, to PromptState) *InvalidPromptTransitionError {
	return &InvalidPromptTransitionError{
		From:    from,
		To:      to,
		Message: promptTransitionErrorMessage(from, to),
	}
}

// NewPromptSourceStateError reports a transition attempted on a version that
// is not in the operation's required source state.
func NewPromptSourceStateError(current, required, to PromptState) *InvalidPromptTransitionError {
	msg := fmt.Sprintf("transition to '%s' requires state '%s', version is '%s'", to, required, current)
	if current == to {
		msg = promptTransitionErrorMessage(current, to)
	}
	return &InvalidPromptTransitionError{From: current, To: to, Message: msg}
}

func promptTransitionErrorMessage(from, to PromptState) string {
	switch {
	case from == PromptStateDraft && to == PromptStateArchived:
		return "cannot archive a draft: promote it first or delete it"
	case from == PromptStateArchived && to == PromptStateArchived:
		return "version is already archived"
	case from == PromptStateProduction && to == PromptStateProduction:
		return "version is already in production"
	case from == PromptStateFallback:
		return "fallback versions are not stored and have no lifecycle"
	default:
		valid := ValidPromptTransitionsFrom(from)
		if len(valid) > 0 {
			return fmt.Sprintf("invalid transition from '%s' to '%s': valid transitions are %v", from, to, valid)
		}
		return fmt.Sprintf("invalid transition from '%s' to '%s': no valid transitions from this state", from, to)
	}
}

// TransitionResult reports the outcome of a non-strict transition attempt.
type TransitionResult struct {
	Applied bool        `json:"applied"`
	From    PromptState `json:"from"`
	To      PromptState `json:"to"`
	Reason  string      `json:"reason,omitempty"`
}
