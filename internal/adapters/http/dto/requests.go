package dto

import (
	"github.com/observahq/observa/internal/domain/models"
)

// CreatePromptVersionRequest creates a new version of a named prompt.
type CreatePromptVersionRequest struct {
	Text          string              `json:"text"`
	Config        models.PromptConfig `json:"config"`
	CommitMessage string              `json:"commit_message,omitempty"`
	CreatedBy     string              `json:"created_by,omitempty"`
	Promote       bool                `json:"promote,omitempty"`
}

// UpdatePromptVersionRequest edits a draft version.
type UpdatePromptVersionRequest struct {
	Text          string              `json:"text"`
	Config        models.PromptConfig `json:"config"`
	CommitMessage string              `json:"commit_message,omitempty"`
}

// CompilePromptRequest substitutes variables into a prompt version.
type CompilePromptRequest struct {
	Variables map[string]any `json:"variables"`
	Strict    bool           `json:"strict,omitempty"`
	Version   int            `json:"version,omitempty"`
	State     string         `json:"state,omitempty"`
	Fallback  string         `json:"fallback,omitempty"`
}

// CompilePromptResponse carries the compiled text.
type CompilePromptResponse struct {
	Compiled string `json:"compiled"`
}

// CreateDatasetRequest creates a named dataset.
type CreateDatasetRequest struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	AgentReference string         `json:"agent_reference,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// UpdateDatasetRequest patches dataset fields. Nil pointers leave the
// stored value unchanged.
type UpdateDatasetRequest struct {
	Description    *string        `json:"description,omitempty"`
	AgentReference *string        `json:"agent_reference,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CreateDatasetItemRequest adds one item to a dataset.
type CreateDatasetItemRequest struct {
	Input          any            `json:"input"`
	ExpectedOutput any            `json:"expected_output,omitempty"`
	SourceTraceID  *string        `json:"source_trace_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SearchSimilarRequest finds items near a query text.
type SearchSimilarRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// CreateRunRequest creates a pending run on a dataset.
type CreateRunRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpsertScoreRequest attaches a score to a trace or run item.
type UpsertScoreRequest struct {
	ScoreableType string   `json:"scoreable_type"`
	ScoreableID   string   `json:"scoreable_id"`
	Name          string   `json:"name"`
	Source        string   `json:"source,omitempty"`
	DataType      string   `json:"data_type,omitempty"`
	Value         *float64 `json:"value,omitempty"`
	StringValue   string   `json:"string_value,omitempty"`
	Comment       string   `json:"comment,omitempty"`
}

// CreateTraceRequest records an externally produced trace.
type CreateTraceRequest struct {
	Name       string         `json:"name"`
	SessionID  *string        `json:"session_id,omitempty"`
	Input      any            `json:"input,omitempty"`
	Output     any            `json:"output,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Cost       float64        `json:"cost,omitempty"`
	Tokens     int            `json:"tokens,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
}

// CreateObservationRequest records one span inside a trace.
type CreateObservationRequest struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Input       any            `json:"input,omitempty"`
	Output      any            `json:"output,omitempty"`
	Model       string         `json:"model,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Cost        float64        `json:"cost,omitempty"`
	TotalTokens int            `json:"total_tokens,omitempty"`
}

// CreateSessionRequest groups traces under a session.
type CreateSessionRequest struct {
	Name   string `json:"name,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// ListResponse is the generic paged collection envelope.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
