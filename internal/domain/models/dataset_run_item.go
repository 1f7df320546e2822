package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunItemStatus is derived from a run item's trace/error fields, never stored.
type RunItemStatus string

const (
	RunItemStatusPending   RunItemStatus = "pending"
	RunItemStatusSucceeded RunItemStatus = "succeeded"
	RunItemStatusFailed    RunItemStatus = "failed"
)

// DatasetRunItem links one dataset item to its execution result within a
// specific run. The (run, item) pair is unique. Trace is populated by
// repositories that join the execution trace; it may be nil.
type DatasetRunItem struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	ItemID    string    `json:"item_id"`
	TraceID   *string   `json:"trace_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Trace *Trace `json:"trace,omitempty"`
}

// Status derives the run item state: an error always means failed,
// a trace without error means succeeded, anything else is pending.
func (ri *DatasetRunItem) Status() RunItemStatus {
	if ri.Error != "" {
		return RunItemStatusFailed
	}
	if ri.TraceID != nil {
		return RunItemStatusSucceeded
	}
	return RunItemStatusPending
}

// Succeeded reports whether the item executed without error.
func (ri *DatasetRunItem) Succeeded() bool {
	return ri.Status() == RunItemStatusSucceeded
}

// ActualOutput returns the traced output, or nil when no trace is attached.
func (ri *DatasetRunItem) ActualOutput() any {
	if ri.Trace == nil {
		return nil
	}
	return ri.Trace.Output
}

// Cost returns the traced cost, zero without a trace.
func (ri *DatasetRunItem) Cost() float64 {
	if ri.Trace == nil {
		return 0
	}
	return ri.Trace.Cost
}

// Tokens returns the traced token count, zero without a trace.
func (ri *DatasetRunItem) Tokens() int {
	if ri.Trace == nil {
		return 0
	}
	return ri.Trace.Tokens
}

// Duration returns the traced execution duration, zero without a trace.
func (ri *DatasetRunItem) Duration() time.Duration {
	if ri.Trace == nil {
		return 0
	}
	return time.Duration(ri.Trace.DurationMS) * time.Millisecond
}

// OutputMatches compares expected and actual output by stringified equality.
// Returns nil when either side is blank. Structured values are serialized
// before comparison, so maps with identical keys in a different insertion
// order still compare equal, but semantically-equal values of different
// shapes (e.g. "1" vs 1) do not.
func OutputMatches(expected, actual any) *bool {
	exp := Stringify(expected)
	act := Stringify(actual)
	if exp == "" || act == "" {
		return nil
	}
	match := exp == act
	return &match
}

// Stringify renders an arbitrary structured value as a comparison string.
// Strings pass through; everything else is JSON-encoded (with a fmt
// fallback for unencodable values).
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
