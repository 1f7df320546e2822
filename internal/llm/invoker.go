package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/observahq/observa/internal/adapters/metrics"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

// AgentInvoker executes dataset item inputs against an OpenAI-compatible
// endpoint. The agent reference selects the model; an empty reference uses
// the client default.
type AgentInvoker struct {
	client          *Client
	inputTokenCost  float64
	outputTokenCost float64
}

// NewAgentInvoker creates an invoker. Token costs are per single token and
// may be zero when cost tracking is not configured.
func NewAgentInvoker(client *Client, inputTokenCost, outputTokenCost float64) *AgentInvoker {
	return &AgentInvoker{
		client:          client,
		inputTokenCost:  inputTokenCost,
		outputTokenCost: outputTokenCost,
	}
}

func (a *AgentInvoker) Invoke(ctx context.Context, agentRef string, input any) (*ports.AgentResult, error) {
	agent := agentRef
	if agent == "" {
		agent = a.client.Model()
	}

	start := time.Now()
	resp, err := a.client.ChatWithModel(ctx, agentRef, []ChatMessage{
		{Role: "user", Content: models.Stringify(input)},
	})
	elapsed := time.Since(start)

	metrics.AgentRequestDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
	if err != nil {
		metrics.AgentRequestsTotal.WithLabelValues(agent, "error").Inc()
		return nil, domain.NewDomainError(domain.ErrAgentUnavailable, err.Error())
	}
	metrics.AgentRequestsTotal.WithLabelValues(agent, "ok").Inc()

	if len(resp.Choices) == 0 {
		return nil, domain.NewDomainError(domain.ErrAgentUnavailable, "agent returned no choices")
	}

	cost := float64(resp.Usage.PromptTokens)*a.inputTokenCost +
		float64(resp.Usage.CompletionTokens)*a.outputTokenCost

	return &ports.AgentResult{
		Output:           resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Cost:             cost,
		Duration:         elapsed,
	}, nil
}

// JudgeClient grades evaluator prompts with a single chat turn.
type JudgeClient struct {
	client *Client
}

func NewJudgeClient(client *Client) *JudgeClient {
	return &JudgeClient{client: client}
}

func (j *JudgeClient) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Chat(ctx, []ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("judge returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
