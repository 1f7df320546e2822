package models

import "time"

// RunStatus is the lifecycle state of a dataset run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// DatasetRun is one execution of all active items in a dataset.
// Counters and aggregates are recomputed from run items, never incremented
// in place.
type DatasetRun struct {
	ID             string         `json:"id"`
	DatasetID      string         `json:"dataset_id"`
	Name           string         `json:"name"`
	Status         RunStatus      `json:"status"`
	TotalItems     int            `json:"total_items"`
	CompletedItems int            `json:"completed_items"`
	FailedItems    int            `json:"failed_items"`
	TotalCost      float64        `json:"total_cost"`
	TotalTokens    int            `json:"total_tokens"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// ProgressPercentage is the share of items with a terminal result.
// Zero when the run holds no items.
func (r *DatasetRun) ProgressPercentage() float64 {
	if r.TotalItems == 0 {
		return 0
	}
	return float64(r.CompletedItems+r.FailedItems) / float64(r.TotalItems) * 100
}

// SuccessRate is the percentage of items that succeeded.
func (r *DatasetRun) SuccessRate() float64 {
	if r.TotalItems == 0 {
		return 0
	}
	return float64(r.CompletedItems) / float64(r.TotalItems) * 100
}

// FailureRate is the percentage of items that failed.
func (r *DatasetRun) FailureRate() float64 {
	if r.TotalItems == 0 {
		return 0
	}
	return float64(r.FailedItems) / float64(r.TotalItems) * 100
}

// IsTerminal reports whether the run reached a final state.
func (r *DatasetRun) IsTerminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
