package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/observahq/observa/internal/adapters/metrics"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/evaluation"
	"github.com/observahq/observa/internal/ports"
)

// RunOrchestrator drives the dataset evaluation pipeline: it materializes
// run items, executes them against the agent, records traces, recomputes
// metrics and hands the finished run to the evaluator runner.
type RunOrchestrator struct {
	datasets    ports.DatasetRepository
	items       ports.DatasetItemRepository
	runs        ports.DatasetRunRepository
	runItems    ports.DatasetRunItemRepository
	traces      ports.TraceRepository
	txManager   ports.TransactionManager
	idGenerator ports.IDGenerator
	invoker     ports.AgentInvoker
	evaluator   *evaluation.Runner
	publisher   ports.RunEventPublisher
}

func NewRunOrchestrator(
	datasets ports.DatasetRepository,
	items ports.DatasetItemRepository,
	runs ports.DatasetRunRepository,
	runItems ports.DatasetRunItemRepository,
	traces ports.TraceRepository,
	txManager ports.TransactionManager,
	idGenerator ports.IDGenerator,
	invoker ports.AgentInvoker,
	evaluator *evaluation.Runner,
	publisher ports.RunEventPublisher,
) *RunOrchestrator {
	return &RunOrchestrator{
		datasets:    datasets,
		items:       items,
		runs:        runs,
		runItems:    runItems,
		traces:      traces,
		txManager:   txManager,
		idGenerator: idGenerator,
		invoker:     invoker,
		evaluator:   evaluator,
		publisher:   publisher,
	}
}

// CreateRun creates a pending run. Run names are unique per dataset.
func (s *RunOrchestrator) CreateRun(ctx context.Context, datasetID, name string, metadata map[string]any) (*models.DatasetRun, error) {
	if err := ValidateID(datasetID, "dataset"); err != nil {
		return nil, err
	}
	if err := ValidateRequired(name, "run name"); err != nil {
		return nil, err
	}

	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, err
	}

	if existing, err := s.runs.GetByName(ctx, datasetID, name); err == nil && existing != nil {
		return nil, domain.NewDomainError(domain.ErrRunNameTaken, "run "+name+" already exists for this dataset")
	} else if err != nil && !errors.Is(err, domain.ErrRunNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	run := &models.DatasetRun{
		ID:        s.idGenerator.GenerateDatasetRunID(),
		DatasetID: datasetID,
		Name:      name,
		Status:    models.RunStatusPending,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// InitializeRunItems materializes one run item per active dataset item that
// lacks one, then refreshes total_items. Idempotent: a second call fills
// only the gaps.
func (s *RunOrchestrator) InitializeRunItems(ctx context.Context, runID string) (*models.DatasetRun, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.runItems.CreateMissing(ctx, run.ID, run.DatasetID); err != nil {
			return err
		}

		materialized, err := s.runItems.ListByRun(ctx, run.ID)
		if err != nil {
			return err
		}
		run.TotalItems = len(materialized)
		return s.runs.UpdateTotalItems(ctx, run.ID, run.TotalItems)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Execute runs every pending run item sequentially in creation order. Item
// failures are recorded on the item and never abort the run. After the last
// item the run metrics are recomputed, the run moves to its terminal state
// and the configured evaluators are applied.
func (s *RunOrchestrator) Execute(ctx context.Context, runID string) (*models.DatasetRun, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	applied, err := s.runs.UpdateStatus(ctx, run.ID, models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, models.NewInvalidRunTransitionError(run.Status, models.RunStatusRunning)
	}

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	dataset, err := s.datasets.GetByID(ctx, run.DatasetID)
	if err != nil {
		return nil, err
	}

	if _, err := s.InitializeRunItems(ctx, run.ID); err != nil {
		return nil, err
	}

	items, err := s.runItems.ListByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	for _, runItem := range items {
		if runItem.Status() != models.RunItemStatusPending {
			continue
		}
		s.executeItem(ctx, dataset, run, runItem)

		if updated, err := s.runs.UpdateMetrics(ctx, run.ID); err != nil {
			log.Printf("[RunOrchestrator] refreshing metrics for run %s: %v", run.ID, err)
		} else {
			run = updated
		}
		s.publishProgress(run, runItem)
	}

	run, err = s.runs.UpdateMetrics(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	terminal := models.RunStatusCompleted
	if run.TotalItems > 0 && run.CompletedItems == 0 {
		terminal = models.RunStatusFailed
	}
	applied, err = s.runs.UpdateStatus(ctx, run.ID, models.RunStatusRunning, terminal)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.NewDomainError(domain.ErrInvalidState, "run status changed concurrently")
	}
	run.Status = terminal
	metrics.RunsTotal.WithLabelValues(string(terminal)).Inc()

	s.publish(ports.RunEvent{
		RunID:          run.ID,
		Type:           "run_" + string(terminal),
		CompletedItems: run.CompletedItems,
		FailedItems:    run.FailedItems,
		TotalItems:     run.TotalItems,
		Progress:       run.ProgressPercentage(),
	})

	if s.evaluator != nil {
		report, err := s.evaluator.Run(ctx, run, evaluatorConfigs(dataset))
		if err != nil {
			log.Printf("[RunOrchestrator] evaluating run %s: %v", run.ID, err)
		} else {
			log.Printf("[RunOrchestrator] run %s evaluated: %d scored, %d skipped, %d failed",
				run.ID, report.Scored, report.Skipped, report.Failed)
		}
	}

	return run, nil
}

// executeItem invokes the agent for one run item and records either a trace
// or the error text.
func (s *RunOrchestrator) executeItem(ctx context.Context, dataset *models.Dataset, run *models.DatasetRun, runItem *models.DatasetRunItem) {
	item, err := s.items.GetByID(ctx, runItem.ItemID)
	if err != nil {
		s.failItem(ctx, runItem, err)
		return
	}

	result, err := s.invoker.Invoke(ctx, dataset.AgentReference, item.Input)
	if err != nil {
		s.failItem(ctx, runItem, err)
		return
	}

	trace := &models.Trace{
		ID:         s.idGenerator.GenerateTraceID(),
		Name:       "dataset-run",
		Input:      item.Input,
		Output:     result.Output,
		Metadata:   map[string]any{"run_id": run.ID, "model": result.Model},
		Cost:       result.Cost,
		Tokens:     result.PromptTokens + result.CompletionTokens,
		DurationMS: result.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.traces.Create(ctx, trace); err != nil {
		s.failItem(ctx, runItem, err)
		return
	}

	if err := s.runItems.SetTrace(ctx, runItem.ID, trace.ID); err != nil {
		log.Printf("[RunOrchestrator] attaching trace %s to run item %s: %v", trace.ID, runItem.ID, err)
		return
	}
	traceID := trace.ID
	runItem.TraceID = &traceID
	runItem.Trace = trace
	metrics.RunItemsTotal.WithLabelValues("succeeded").Inc()
}

func (s *RunOrchestrator) failItem(ctx context.Context, runItem *models.DatasetRunItem, cause error) {
	log.Printf("[RunOrchestrator] run item %s failed: %v", runItem.ID, cause)
	runItem.Error = cause.Error()
	if err := s.runItems.SetError(ctx, runItem.ID, cause.Error()); err != nil {
		log.Printf("[RunOrchestrator] recording error on run item %s: %v", runItem.ID, err)
	}
	metrics.RunItemsTotal.WithLabelValues("failed").Inc()
}

func (s *RunOrchestrator) publishProgress(run *models.DatasetRun, runItem *models.DatasetRunItem) {
	eventType := "item_completed"
	if runItem.Status() == models.RunItemStatusFailed {
		eventType = "item_failed"
	}
	s.publish(ports.RunEvent{
		RunID:          run.ID,
		Type:           eventType,
		RunItemID:      runItem.ID,
		Error:          runItem.Error,
		CompletedItems: run.CompletedItems,
		FailedItems:    run.FailedItems,
		TotalItems:     run.TotalItems,
		Progress:       run.ProgressPercentage(),
	})
}

func (s *RunOrchestrator) publish(event ports.RunEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func (s *RunOrchestrator) GetRun(ctx context.Context, id string) (*models.DatasetRun, error) {
	if err := ValidateID(id, "run"); err != nil {
		return nil, err
	}
	return s.runs.GetByID(ctx, id)
}

func (s *RunOrchestrator) ListRuns(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetRun, error) {
	if err := ValidateID(datasetID, "dataset"); err != nil {
		return nil, err
	}
	return s.runs.ListByDataset(ctx, datasetID, normalizeLimit(limit), offset)
}

func (s *RunOrchestrator) ListRunItems(ctx context.Context, runID string) ([]*models.DatasetRunItem, error) {
	if err := ValidateID(runID, "run"); err != nil {
		return nil, err
	}
	return s.runItems.ListByRun(ctx, runID)
}

// evaluatorConfigs parses the dataset metadata "evaluators" list into
// evaluator configurations. Malformed entries are dropped.
func evaluatorConfigs(dataset *models.Dataset) []evaluation.EvaluatorConfig {
	raw := EvaluatorConfigsRaw(dataset)
	if len(raw) == 0 {
		return nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		log.Printf("[RunOrchestrator] encoding evaluator configs for dataset %s: %v", dataset.ID, err)
		return nil
	}
	var configs []evaluation.EvaluatorConfig
	if err := json.Unmarshal(encoded, &configs); err != nil {
		log.Printf("[RunOrchestrator] parsing evaluator configs for dataset %s: %v", dataset.ID, err)
		return nil
	}

	valid := configs[:0]
	for _, cfg := range configs {
		if cfg.Type != "" {
			valid = append(valid, cfg)
		}
	}
	return valid
}
