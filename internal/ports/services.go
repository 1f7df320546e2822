package ports

import (
	"context"
	"time"
)

// IDGenerator creates unique, prefixed IDs for each entity type.
type IDGenerator interface {
	GeneratePromptVersionID() string
	GenerateDatasetID() string
	GenerateDatasetItemID() string
	GenerateDatasetRunID() string
	GenerateDatasetRunItemID() string
	GenerateScoreID() string
	GenerateTraceID() string
	GenerateObservationID() string
	GenerateSessionID() string
}

// AgentResult is what one agent invocation produced, including the metrics
// the trace provider records for it.
type AgentResult struct {
	Output           any
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Duration         time.Duration
}

// AgentInvoker executes one dataset item input against an external agent.
// agentRef identifies the callable (for the built-in adapter, a model name).
type AgentInvoker interface {
	Invoke(ctx context.Context, agentRef string, input any) (*AgentResult, error)
}

// EmbeddingService generates vector embeddings for similarity search.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// JudgeClient answers a single grading prompt, for LLM-judge evaluators.
type JudgeClient interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// RunEvent is a progress notification emitted while a run executes.
type RunEvent struct {
	RunID          string  `json:"run_id"`
	Type           string  `json:"type"` // item_completed, item_failed, run_completed, run_failed
	RunItemID      string  `json:"run_item_id,omitempty"`
	Error          string  `json:"error,omitempty"`
	CompletedItems int     `json:"completed_items"`
	FailedItems    int     `json:"failed_items"`
	TotalItems     int     `json:"total_items"`
	Progress       float64 `json:"progress"`
}

// RunEventPublisher fans run progress out to subscribers (SSE streams).
type RunEventPublisher interface {
	Publish(event RunEvent)
}
