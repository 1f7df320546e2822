package evaluation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
	"github.com/observahq/observa/internal/template"
)

const defaultJudgePrompt = `Rate how well the response answers the input on a scale from 0 to 10.

Input: {{input}}
Expected: {{expected}}
Response: {{actual}}

Reply with only the number.`

var judgeScoreRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// NewLLMJudgeFactory builds the llm_judge factory bound to a judge client.
// Registered by the caller that owns the client, not by init, since the
// evaluator is unusable without one.
func NewLLMJudgeFactory(client ports.JudgeClient) Factory {
	return func(cfg EvaluatorConfig) (Evaluator, error) {
		prompt := defaultJudgePrompt
		if p, ok := cfg.Options["prompt"].(string); ok && p != "" {
			prompt = p
		}
		return &LLMJudge{
			name:   scoreName(cfg),
			client: client,
			prompt: prompt,
		}, nil
	}
}

// LLMJudge grades a run item by asking an LLM for a 0-10 rating and
// normalizing it to 0-1. The grading prompt is a template over the item's
// input, expected and actual output.
type LLMJudge struct {
	name   string
	client ports.JudgeClient
	prompt string
}

func (e *LLMJudge) Name() string { return e.name }

func (e *LLMJudge) DataType() models.ScoreDataType { return models.ScoreDataNumeric }

func (e *LLMJudge) Source() models.ScoreSource { return models.ScoreSourceLLMJudge }

func (e *LLMJudge) Evaluate(ctx context.Context, input *EvalInput) (*float64, error) {
	prompt := template.Compile(e.prompt, map[string]any{
		"input":    models.Stringify(input.Input),
		"expected": models.Stringify(input.ExpectedOutput),
		"actual":   models.Stringify(input.ActualOutput),
	})

	reply, err := e.client.Judge(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	match := judgeScoreRegex.FindString(reply)
	if match == "" {
		return nil, fmt.Errorf("judge reply %q contains no rating", reply)
	}

	rating, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil, fmt.Errorf("judge rating %q: %w", match, err)
	}

	value := rating / 10
	if value > 1 {
		value = 1
	}
	if value < 0 {
		value = 0
	}
	return &value, nil
}
