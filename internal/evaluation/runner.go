package evaluation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/observahq/observa/internal/adapters/metrics"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

// RunReport summarizes one evaluation pass over a run.
type RunReport struct {
	Scored  int
	Skipped int
	Failed  int
}

// Runner applies evaluator configurations to every succeeded run item of a
// dataset run. Evaluation is best-effort: per-evaluator and per-item
// failures are logged and counted, never propagated.
type Runner struct {
	runItems    ports.DatasetRunItemRepository
	scores      ports.ScoreRepository
	idGenerator ports.IDGenerator
}

func NewRunner(runItems ports.DatasetRunItemRepository, scores ports.ScoreRepository, idGenerator ports.IDGenerator) *Runner {
	return &Runner{
		runItems:    runItems,
		scores:      scores,
		idGenerator: idGenerator,
	}
}

// DefaultConfigs is the evaluator set applied when a run has none
// configured.
func DefaultConfigs() []EvaluatorConfig {
	return []EvaluatorConfig{{Type: "exact_match"}}
}

// Run evaluates every succeeded item of the run with each configured
// evaluator. Unknown evaluator types are skipped. A nil evaluator result
// persists nothing.
func (r *Runner) Run(ctx context.Context, run *models.DatasetRun, configs []EvaluatorConfig) (*RunReport, error) {
	if len(configs) == 0 {
		configs = DefaultConfigs()
	}

	evaluators := make([]Evaluator, 0, len(configs))
	for _, cfg := range configs {
		evaluator, err := New(cfg)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownEvaluator) {
				log.Printf("[Runner] skipping unknown evaluator type %q for run %s", cfg.Type, run.ID)
				continue
			}
			return nil, err
		}
		evaluators = append(evaluators, evaluator)
	}

	items, err := r.runItems.ListForEvaluation(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	report := &RunReport{}
	for _, item := range items {
		input := &EvalInput{
			RunItemID:      item.RunItemID,
			ItemID:         item.ItemID,
			Input:          item.Input,
			ExpectedOutput: item.ExpectedOutput,
			ActualOutput:   item.ActualOutput,
		}

		for _, evaluator := range evaluators {
			value, err := evaluator.Evaluate(ctx, input)
			if err != nil {
				log.Printf("[Runner] evaluator %s failed on run item %s: %v", evaluator.Name(), item.RunItemID, err)
				metrics.EvaluatorFailuresTotal.WithLabelValues(evaluator.Name()).Inc()
				report.Failed++
				continue
			}
			if value == nil {
				report.Skipped++
				continue
			}

			if err := r.persist(ctx, evaluator, item.RunItemID, *value); err != nil {
				log.Printf("[Runner] persisting %s score for run item %s: %v", evaluator.Name(), item.RunItemID, err)
				report.Failed++
				continue
			}
			report.Scored++
		}
	}

	return report, nil
}

func (r *Runner) persist(ctx context.Context, evaluator Evaluator, runItemID string, value float64) error {
	now := time.Now().UTC()
	score := &models.Score{
		ID:        r.idGenerator.GenerateScoreID(),
		Scoreable: models.RunItemScoreable(runItemID),
		Name:      evaluator.Name(),
		Value:     value,
		DataType:  evaluator.DataType(),
		Source:    evaluator.Source(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if evaluator.DataType() == models.ScoreDataBoolean {
		if value >= 1 {
			score.StringValue = "true"
		} else {
			score.StringValue = "false"
		}
	}

	if err := r.scores.Upsert(ctx, score); err != nil {
		return err
	}
	metrics.ScoresWrittenTotal.WithLabelValues(string(evaluator.Source())).Inc()
	return nil
}
