package models

import (
	"fmt"

	"github.com/observahq/observa/internal/domain"
)

// Model parameter bounds, matching the OpenAI-compatible API surface.
const (
	TemperatureMin = 0.0
	TemperatureMax = 2.0

	MaxTokensMin = 1
	MaxTokensMax = 100000

	TopPMin = 0.0
	TopPMax = 1.0

	PenaltyMin = -2.0
	PenaltyMax = 2.0

	StopSequencesMax = 4
)

// PromptConfig holds per-version model parameters. Pointer fields
// distinguish "unset" from zero; each set field is validated independently.
type PromptConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	StopSequences    []string `json:"stop_sequences,omitempty"`
	Model            string   `json:"model,omitempty"`
}

// Validate checks every set field against its allowed range.
func (c *PromptConfig) Validate() error {
	if c.Temperature != nil && (*c.Temperature < TemperatureMin || *c.Temperature > TemperatureMax) {
		return configError("temperature", fmt.Sprintf("must be between %.1f and %.1f (got %g)", TemperatureMin, TemperatureMax, *c.Temperature))
	}
	if c.MaxTokens != nil && (*c.MaxTokens < MaxTokensMin || *c.MaxTokens > MaxTokensMax) {
		return configError("max_tokens", fmt.Sprintf("must be between %d and %d (got %d)", MaxTokensMin, MaxTokensMax, *c.MaxTokens))
	}
	if c.TopP != nil && (*c.TopP < TopPMin || *c.TopP > TopPMax) {
		return configError("top_p", fmt.Sprintf("must be between %.1f and %.1f (got %g)", TopPMin, TopPMax, *c.TopP))
	}
	if c.FrequencyPenalty != nil && (*c.FrequencyPenalty < PenaltyMin || *c.FrequencyPenalty > PenaltyMax) {
		return configError("frequency_penalty", fmt.Sprintf("must be between %.1f and %.1f (got %g)", PenaltyMin, PenaltyMax, *c.FrequencyPenalty))
	}
	if c.PresencePenalty != nil && (*c.PresencePenalty < PenaltyMin || *c.PresencePenalty > PenaltyMax) {
		return configError("presence_penalty", fmt.Sprintf("must be between %.1f and %.1f (got %g)", PenaltyMin, PenaltyMax, *c.PresencePenalty))
	}
	if len(c.StopSequences) > StopSequencesMax {
		return configError("stop_sequences", fmt.Sprintf("at most %d sequences allowed (got %d)", StopSequencesMax, len(c.StopSequences)))
	}
	for i, seq := range c.StopSequences {
		if seq == "" {
			return configError("stop_sequences", fmt.Sprintf("sequence %d is empty", i))
		}
	}
	return nil
}

// Clone returns a deep copy so draft edits never alias a stored version.
func (c *PromptConfig) Clone() PromptConfig {
	out := PromptConfig{Model: c.Model}
	if c.Temperature != nil {
		t := *c.Temperature
		out.Temperature = &t
	}
	if c.MaxTokens != nil {
		m := *c.MaxTokens
		out.MaxTokens = &m
	}
	if c.TopP != nil {
		p := *c.TopP
		out.TopP = &p
	}
	if c.FrequencyPenalty != nil {
		f := *c.FrequencyPenalty
		out.FrequencyPenalty = &f
	}
	if c.PresencePenalty != nil {
		p := *c.PresencePenalty
		out.PresencePenalty = &p
	}
	if c.StopSequences != nil {
		out.StopSequences = append([]string(nil), c.StopSequences...)
	}
	return out
}

func configError(field, detail string) error {
	return domain.NewDomainError(domain.ErrValidation, "prompt config "+field+" "+detail)
}
