package ports

import (
	"context"

	"github.com/observahq/observa/internal/domain/models"
)

// PromptVersionRepository defines persistence for versioned prompt templates.
type PromptVersionRepository interface {
	Create(ctx context.Context, version *models.PromptVersion) error
	GetByNameVersion(ctx context.Context, name string, version int) (*models.PromptVersion, error)
	// GetByNameState returns the single version of name in the given state.
	GetByNameState(ctx context.Context, name string, state models.PromptState) (*models.PromptVersion, error)
	// NextVersion allocates the next version number for a name (max+1, or 1).
	NextVersion(ctx context.Context, name string) (int, error)
	// UpdateState conditionally moves a version from one state to another,
	// reporting whether a row actually changed. The source-state guard is
	// part of the statement so concurrent transitions cannot double-apply.
	UpdateState(ctx context.Context, name string, version int, from, to models.PromptState) (bool, error)
	// UpdateDraft persists text/config/commit message edits to a draft.
	UpdateDraft(ctx context.Context, version *models.PromptVersion) error
	// Delete removes a version unless it is in production.
	Delete(ctx context.Context, name string, version int) error
	ListByName(ctx context.Context, name string) ([]*models.PromptVersion, error)
	ListNames(ctx context.Context, limit, offset int) ([]string, error)
}

// DatasetRepository defines persistence for datasets.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	GetByID(ctx context.Context, id string) (*models.Dataset, error)
	GetByName(ctx context.Context, name string) (*models.Dataset, error)
	Update(ctx context.Context, dataset *models.Dataset) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Dataset, error)
}

// DatasetItemRepository defines persistence for dataset items.
type DatasetItemRepository interface {
	Create(ctx context.Context, item *models.DatasetItem) error
	GetByID(ctx context.Context, id string) (*models.DatasetItem, error)
	ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetItem, error)
	ListActiveByDataset(ctx context.Context, datasetID string) ([]*models.DatasetItem, error)
	Archive(ctx context.Context, id string) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	// SearchSimilar returns active items ordered by cosine distance to the
	// query embedding.
	SearchSimilar(ctx context.Context, datasetID string, embedding []float32, limit int) ([]*models.DatasetItem, error)
}

// DatasetRunRepository defines persistence for dataset runs.
type DatasetRunRepository interface {
	Create(ctx context.Context, run *models.DatasetRun) error
	GetByID(ctx context.Context, id string) (*models.DatasetRun, error)
	GetByName(ctx context.Context, datasetID, name string) (*models.DatasetRun, error)
	// UpdateStatus conditionally transitions a run, reporting whether the
	// row changed. Terminal transitions also stamp completed_at.
	UpdateStatus(ctx context.Context, id string, from, to models.RunStatus) (bool, error)
	UpdateTotalItems(ctx context.Context, id string, totalItems int) error
	// UpdateMetrics recomputes counters and cost/token aggregates from the
	// run's items and their traces.
	UpdateMetrics(ctx context.Context, id string) (*models.DatasetRun, error)
	ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetRun, error)
}

// DatasetRunItemRepository defines persistence for run items.
type DatasetRunItemRepository interface {
	// CreateMissing materializes one run item per active dataset item that
	// does not already have one. Idempotent: existing (run, item) pairs are
	// left untouched. Returns the number of items created.
	CreateMissing(ctx context.Context, runID, datasetID string) (int, error)
	GetByID(ctx context.Context, id string) (*models.DatasetRunItem, error)
	// ListByRun returns run items in creation order with traces joined.
	ListByRun(ctx context.Context, runID string) ([]*models.DatasetRunItem, error)
	// ListForEvaluation returns succeeded items with the data evaluators
	// need: the item input, expected output and traced actual output.
	ListForEvaluation(ctx context.Context, runID string) ([]*RunItemEvaluation, error)
	SetTrace(ctx context.Context, id, traceID string) error
	SetError(ctx context.Context, id, errText string) error
}

// RunItemEvaluation carries one succeeded run item prepared for scoring.
type RunItemEvaluation struct {
	RunItemID      string
	ItemID         string
	Input          any
	ExpectedOutput any
	ActualOutput   any
}

// ScoreRepository defines persistence for scores.
type ScoreRepository interface {
	// Upsert inserts a score or, when (scoreable, name, source) already
	// exists, updates the existing row in place.
	Upsert(ctx context.Context, score *models.Score) error
	GetByID(ctx context.Context, id string) (*models.Score, error)
	ListByScoreable(ctx context.Context, scoreable models.Scoreable) ([]*models.Score, error)
	Delete(ctx context.Context, id string) error
}

// TraceRepository defines persistence for traces and their observations.
type TraceRepository interface {
	Create(ctx context.Context, trace *models.Trace) error
	GetByID(ctx context.Context, id string) (*models.Trace, error)
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*models.Trace, error)
	CreateObservation(ctx context.Context, obs *models.Observation) error
	ListObservations(ctx context.Context, traceID string) ([]*models.Observation, error)
	// RecomputeMetrics refreshes a trace's cost/token totals from its
	// observations.
	RecomputeMetrics(ctx context.Context, traceID string) error
}

// SessionRepository defines persistence for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, limit, offset int) ([]*models.Session, error)
}

// TransactionManager runs a function within a database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
