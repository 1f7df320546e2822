package evaluation

import (
	"context"
	"encoding/json"

	"github.com/observahq/observa/internal/domain/models"
)

func init() {
	Register("json_structure", func(cfg EvaluatorConfig) (Evaluator, error) {
		return &JSONStructure{
			name:         scoreName(cfg),
			requiredKeys: toStringList(optionValue(cfg.Options, "required_keys")),
		}, nil
	})
}

// JSONStructure scores the ratio of required keys present in the actual
// output, parsed as a JSON object. Required keys come from the config, or
// from the expected output's own keys when it is a map. An actual output
// that fails to parse counts as an empty object and scores 0.0.
type JSONStructure struct {
	name         string
	requiredKeys []string
}

func (e *JSONStructure) Name() string { return e.name }

func (e *JSONStructure) DataType() models.ScoreDataType { return models.ScoreDataNumeric }

func (e *JSONStructure) Source() models.ScoreSource { return models.ScoreSourceProgrammatic }

func (e *JSONStructure) Evaluate(_ context.Context, input *EvalInput) (*float64, error) {
	keys := e.requiredKeys
	if len(keys) == 0 {
		expected, ok := input.ExpectedOutput.(map[string]any)
		if !ok {
			return nil, nil
		}
		for key := range expected {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	actual := parseObject(input.ActualOutput)

	present := 0
	for _, key := range keys {
		if _, ok := actual[key]; ok {
			present++
		}
	}

	value := float64(present) / float64(len(keys))
	return &value, nil
}

// parseObject coerces the actual output into a JSON object. Strings are
// parsed; parse failure or any non-object shape yields an empty map.
func parseObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return map[string]any{}
		}
		return parsed
	default:
		return map[string]any{}
	}
}

func optionValue(options map[string]any, key string) any {
	if options == nil {
		return nil
	}
	return options[key]
}
