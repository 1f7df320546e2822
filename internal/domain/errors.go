package domain

import "errors"

// Common domain errors
var (
	// Prompt errors
	ErrPromptNotFound     = errors.New("prompt version not found")
	ErrPromptNotEditable  = errors.New("only draft versions can be edited")
	ErrPromptProtected    = errors.New("production versions cannot be deleted")
	ErrInvalidPromptState = errors.New("invalid prompt state")

	// Dataset errors
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrDatasetExists    = errors.New("dataset name already taken")
	ErrItemNotFound     = errors.New("dataset item not found")
	ErrRunNotFound      = errors.New("dataset run not found")
	ErrRunNameTaken     = errors.New("run name already used for this dataset")
	ErrRunItemNotFound  = errors.New("dataset run item not found")
	ErrRunItemDuplicate = errors.New("run item already exists for this item")

	// Score errors
	ErrScoreNotFound     = errors.New("score not found")
	ErrInvalidScoreable  = errors.New("invalid scoreable type")
	ErrInvalidScoreValue = errors.New("score value is required")

	// Trace errors
	ErrTraceNotFound       = errors.New("trace not found")
	ErrObservationNotFound = errors.New("observation not found")
	ErrSessionNotFound     = errors.New("session not found")

	// Evaluator errors
	ErrUnknownEvaluator = errors.New("unknown evaluator type")

	// Agent errors
	ErrAgentUnavailable = errors.New("agent endpoint unavailable")

	// Embedding errors
	ErrEmbeddingsFailed = errors.New("failed to generate embeddings")

	// Validation errors
	ErrInvalidID    = errors.New("invalid ID format")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("resource not found")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

func NewDomainErrorWithCode(err error, message, code string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
