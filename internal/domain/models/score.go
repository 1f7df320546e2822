package models

import (
	"fmt"
	"time"

	"github.com/observahq/observa/internal/domain"
)

// ScoreableType discriminates the fixed set of score owners.
type ScoreableType string

const (
	ScoreableSession        ScoreableType = "session"
	ScoreableTrace          ScoreableType = "trace"
	ScoreableDatasetRunItem ScoreableType = "dataset_run_item"
)

// ParseScoreableType validates a discriminant, rejecting unknown owners.
func ParseScoreableType(s string) (ScoreableType, error) {
	switch ScoreableType(s) {
	case ScoreableSession, ScoreableTrace, ScoreableDatasetRunItem:
		return ScoreableType(s), nil
	default:
		return "", domain.NewDomainError(domain.ErrInvalidScoreable, fmt.Sprintf("unknown scoreable type %q", s))
	}
}

// Scoreable is the tagged owner reference a score attaches to: an explicit
// discriminant plus an opaque owner ID, rather than open-ended dispatch.
type Scoreable struct {
	Type ScoreableType `json:"type"`
	ID   string        `json:"id"`
}

func SessionScoreable(id string) Scoreable {
	return Scoreable{Type: ScoreableSession, ID: id}
}

func TraceScoreable(id string) Scoreable {
	return Scoreable{Type: ScoreableTrace, ID: id}
}

func RunItemScoreable(id string) Scoreable {
	return Scoreable{Type: ScoreableDatasetRunItem, ID: id}
}

// ScoreDataType describes how a score value should be interpreted.
type ScoreDataType string

const (
	ScoreDataNumeric     ScoreDataType = "numeric"
	ScoreDataBoolean     ScoreDataType = "boolean"
	ScoreDataCategorical ScoreDataType = "categorical"
)

// ScoreSource identifies who or what produced a score.
type ScoreSource string

const (
	ScoreSourceProgrammatic ScoreSource = "programmatic"
	ScoreSourceManual       ScoreSource = "manual"
	ScoreSourceLLMJudge     ScoreSource = "llm_judge"
)

// Score is a persisted judgment attached to a session, trace or run item.
// (scoreable, name, source) is unique: re-scoring the same dimension from
// the same source updates the existing row.
type Score struct {
	ID            string        `json:"id"`
	Scoreable     Scoreable     `json:"scoreable"`
	ObservationID *string       `json:"observation_id,omitempty"`
	Name          string        `json:"name"`
	Value         float64       `json:"value"`
	StringValue   string        `json:"string_value,omitempty"`
	DataType      ScoreDataType `json:"data_type"`
	Source        ScoreSource   `json:"source"`
	Comment       string        `json:"comment,omitempty"`
	CreatedBy     string        `json:"created_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Validate checks the fields every score must carry.
func (s *Score) Validate() error {
	if _, err := ParseScoreableType(string(s.Scoreable.Type)); err != nil {
		return err
	}
	if s.Scoreable.ID == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, "scoreable ID is required")
	}
	if s.Name == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, "score name is required")
	}
	switch s.DataType {
	case ScoreDataNumeric, ScoreDataBoolean, ScoreDataCategorical:
	default:
		return domain.NewDomainError(domain.ErrInvalidInput, fmt.Sprintf("unknown score data type %q", s.DataType))
	}
	switch s.Source {
	case ScoreSourceProgrammatic, ScoreSourceManual, ScoreSourceLLMJudge:
	default:
		return domain.NewDomainError(domain.ErrInvalidInput, fmt.Sprintf("unknown score source %q", s.Source))
	}
	return nil
}
