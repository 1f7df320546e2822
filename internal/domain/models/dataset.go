package models

import "time"

// Dataset is a named collection of test inputs used to evaluate an agent
// configuration repeatedly. Metadata may carry an "evaluators" key holding
// the evaluator configurations applied to its runs.
type Dataset struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	AgentReference string         `json:"agent_reference,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ItemStatus marks whether a dataset item participates in new runs.
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusArchived ItemStatus = "archived"
)

// DatasetItem is one test case: an input and an optional expected output.
// The embedding, when set, enables similar-item search across the dataset.
type DatasetItem struct {
	ID             string         `json:"id"`
	DatasetID      string         `json:"dataset_id"`
	Input          any            `json:"input"`
	ExpectedOutput any            `json:"expected_output,omitempty"`
	Status         ItemStatus     `json:"status"`
	SourceTraceID  *string        `json:"source_trace_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Embedding      []float32      `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsActive reports whether the item is materialized into new runs.
func (i *DatasetItem) IsActive() bool {
	return i.Status == ItemStatusActive
}
