package models

import "time"

// PromptState is the lifecycle state of a prompt version.
type PromptState string

const (
	PromptStateDraft      PromptState = "draft"
	PromptStateProduction PromptState = "production"
	PromptStateArchived   PromptState = "archived"

	// PromptStateFallback marks an in-memory stand-in returned when a fetch
	// misses and the caller supplied default text. Never persisted.
	PromptStateFallback PromptState = "fallback"
)

// PromptVersion is one snapshot of a named prompt template and its model
// configuration. Versions are numbered per name; only drafts are editable.
type PromptVersion struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Version       int          `json:"version"`
	State         PromptState  `json:"state"`
	Text          string       `json:"text"`
	Config        PromptConfig `json:"config"`
	CommitMessage string       `json:"commit_message,omitempty"`
	CreatedBy     string       `json:"created_by,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewPromptVersion creates a draft at the given version number.
func NewPromptVersion(id, name string, version int, text string, config PromptConfig) *PromptVersion {
	now := time.Now().UTC()
	return &PromptVersion{
		ID:        id,
		Name:      name,
		Version:   version,
		State:     PromptStateDraft,
		Text:      text,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FallbackVersion wraps caller-supplied default text in the prompt version
// read interface. Version 0 signals "no stored version".
func FallbackVersion(name, text string) *PromptVersion {
	return &PromptVersion{
		Name:    name,
		Version: 0,
		State:   PromptStateFallback,
		Text:    text,
	}
}

// IsEditable reports whether text/config edits are allowed.
func (v *PromptVersion) IsEditable() bool {
	return v.State == PromptStateDraft
}

// IsDeletable reports whether the version may be removed.
// Production versions must be demoted first.
func (v *PromptVersion) IsDeletable() bool {
	return v.State == PromptStateDraft || v.State == PromptStateArchived
}

// IsFallback reports whether this version is an in-memory stand-in.
func (v *PromptVersion) IsFallback() bool {
	return v.State == PromptStateFallback
}
