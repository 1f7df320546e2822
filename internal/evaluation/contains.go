package evaluation

import (
	"context"
	"strings"

	"github.com/observahq/observa/internal/domain/models"
)

func init() {
	Register("contains", func(cfg EvaluatorConfig) (Evaluator, error) {
		return &Contains{
			name:     scoreName(cfg),
			keywords: keywordsFromOptions(cfg.Options),
		}, nil
	})
}

// Contains scores the ratio of configured keywords found in the actual
// output, case-insensitive. Keywords come from the config, or are derived
// from the expected output when the config has none: an array is the
// keyword list, a map contributes its "keywords" entry, a string is a
// single keyword.
type Contains struct {
	name     string
	keywords []string
}

func (e *Contains) Name() string { return e.name }

func (e *Contains) DataType() models.ScoreDataType { return models.ScoreDataNumeric }

func (e *Contains) Source() models.ScoreSource { return models.ScoreSourceProgrammatic }

func (e *Contains) Evaluate(_ context.Context, input *EvalInput) (*float64, error) {
	keywords := e.keywords
	if len(keywords) == 0 {
		keywords = keywordsFromExpected(input.ExpectedOutput)
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	actual := models.Stringify(input.ActualOutput)
	if actual == "" {
		zero := 0.0
		return &zero, nil
	}

	haystack := strings.ToLower(actual)
	found := 0
	for _, keyword := range keywords {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			found++
		}
	}

	value := float64(found) / float64(len(keywords))
	return &value, nil
}

func keywordsFromOptions(options map[string]any) []string {
	if options == nil {
		return nil
	}
	return toStringList(options["keywords"])
}

func keywordsFromExpected(expected any) []string {
	switch v := expected.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		return toStringList(v)
	case []string:
		return v
	case map[string]any:
		return toStringList(v["keywords"])
	default:
		return nil
	}
}

func toStringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			list = append(list, models.Stringify(item))
		}
		return list
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
