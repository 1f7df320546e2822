package models

import "time"

// Trace records one agent execution: its input, output and the metrics
// the run orchestration reads back (cost, tokens, duration). Metrics are
// supplied by the executing adapter; the orchestration never computes them.
type Trace struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	SessionID  *string        `json:"session_id,omitempty"`
	Input      any            `json:"input,omitempty"`
	Output     any            `json:"output,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Cost       float64        `json:"cost"`
	Tokens     int            `json:"tokens"`
	DurationMS int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ObservationType classifies entries within a trace.
type ObservationType string

const (
	ObservationSpan       ObservationType = "span"
	ObservationGeneration ObservationType = "generation"
	ObservationEvent      ObservationType = "event"
)

// Observation is a single step inside a trace: a span, an LLM generation
// (with token usage), or a point-in-time event.
type Observation struct {
	ID               string          `json:"id"`
	TraceID          string          `json:"trace_id"`
	Type             ObservationType `json:"type"`
	Name             string          `json:"name,omitempty"`
	Model            string          `json:"model,omitempty"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	TotalTokens      int             `json:"total_tokens"`
	Cost             float64         `json:"cost"`
	Input            any             `json:"input,omitempty"`
	Output           any             `json:"output,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	EndedAt          *time.Time      `json:"ended_at,omitempty"`
}

// Session groups traces belonging to one interaction, so session-level
// scores have a concrete owner.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
