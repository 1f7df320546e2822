package evaluation

import (
	"context"
	"fmt"
	"sync"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

// EvalInput is one succeeded run item prepared for scoring.
type EvalInput struct {
	RunItemID      string
	ItemID         string
	Input          any
	ExpectedOutput any
	ActualOutput   any
}

// Evaluator grades one run item along a single dimension. A nil result
// means the evaluator does not apply to the item (for example, no expected
// output to compare against); nothing is persisted for it.
type Evaluator interface {
	Name() string
	DataType() models.ScoreDataType
	Source() models.ScoreSource
	Evaluate(ctx context.Context, input *EvalInput) (*float64, error)
}

// EvaluatorConfig selects and parameterizes an evaluator.
type EvaluatorConfig struct {
	Type    string         `json:"type"`
	Name    string         `json:"name,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Factory builds an evaluator from its configuration.
type Factory func(cfg EvaluatorConfig) (Evaluator, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an evaluator factory under a type name. Called from init;
// a duplicate registration panics to surface the conflict at startup.
func Register(evaluatorType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[evaluatorType]; exists {
		panic(fmt.Sprintf("evaluator type %q already registered", evaluatorType))
	}
	registry[evaluatorType] = factory
}

// New builds the evaluator configured by cfg, rejecting unknown types.
func New(cfg EvaluatorConfig) (Evaluator, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, domain.NewDomainError(domain.ErrUnknownEvaluator, fmt.Sprintf("evaluator type %q", cfg.Type))
	}
	return factory(cfg)
}

// Types lists the registered evaluator type names.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// scoreName resolves the persisted score name: explicit config name, or the
// evaluator type.
func scoreName(cfg EvaluatorConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.Type
}
