package evaluation

import (
	"context"

	"github.com/observahq/observa/internal/domain/models"
)

func init() {
	Register("exact_match", func(cfg EvaluatorConfig) (Evaluator, error) {
		return &ExactMatch{name: scoreName(cfg)}, nil
	})
}

// ExactMatch scores 1.0 when the stringified actual output equals the
// stringified expected output, 0.0 otherwise. Items without an expected
// output are not applicable; a blank actual output against a non-blank
// expected output scores 0.0.
type ExactMatch struct {
	name string
}

func (e *ExactMatch) Name() string { return e.name }

func (e *ExactMatch) DataType() models.ScoreDataType { return models.ScoreDataBoolean }

func (e *ExactMatch) Source() models.ScoreSource { return models.ScoreSourceProgrammatic }

func (e *ExactMatch) Evaluate(_ context.Context, input *EvalInput) (*float64, error) {
	expected := models.Stringify(input.ExpectedOutput)
	if expected == "" {
		return nil, nil
	}
	value := 0.0
	if expected == models.Stringify(input.ActualOutput) {
		value = 1.0
	}
	return &value, nil
}
