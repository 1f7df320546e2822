package services

import (
	"context"
	"errors"
	"time"

	"github.com/observahq/observa/internal/adapters/metrics"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
	"github.com/observahq/observa/internal/template"
)

// PromptStore manages the prompt version lifecycle: creation, fetching with
// fallback, promotion between states and template compilation.
type PromptStore struct {
	repo        ports.PromptVersionRepository
	txManager   ports.TransactionManager
	idGenerator ports.IDGenerator
	cache       *promptCache
}

func NewPromptStore(
	repo ports.PromptVersionRepository,
	txManager ports.TransactionManager,
	idGenerator ports.IDGenerator,
) *PromptStore {
	return &PromptStore{
		repo:        repo,
		txManager:   txManager,
		idGenerator: idGenerator,
		cache:       newPromptCache(),
	}
}

// SetCacheTTL overrides the default fetch cache lifetime. Non-positive
// durations are ignored.
func (s *PromptStore) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cache.ttl = ttl
	}
}

// CreateOptions carries the optional fields of a new version.
type CreateOptions struct {
	CommitMessage string
	CreatedBy     string
	// Promote immediately moves the new version into production,
	// archiving the current production version.
	Promote bool
}

// FetchOptions selects which version of a prompt to fetch. Version takes
// precedence over State; the zero State means production. Fallback, when
// non-empty, substitutes a synthetic version for any miss.
type FetchOptions struct {
	Version  int
	State    models.PromptState
	Fallback string
}

// CreateVersion validates the config, allocates the next version number and
// stores the draft. The number allocation and insert share a transaction so
// concurrent creates cannot collide.
func (s *PromptStore) CreateVersion(ctx context.Context, name, text string, config models.PromptConfig, opts CreateOptions) (*models.PromptVersion, error) {
	if err := ValidateRequired(name, "prompt name"); err != nil {
		return nil, err
	}
	if err := ValidateRequired(text, "prompt text"); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var created *models.PromptVersion
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		next, err := s.repo.NextVersion(ctx, name)
		if err != nil {
			return err
		}

		version := models.NewPromptVersion(s.idGenerator.GeneratePromptVersionID(), name, next, text, config)
		version.CommitMessage = opts.CommitMessage
		version.CreatedBy = opts.CreatedBy

		if err := s.repo.Create(ctx, version); err != nil {
			return err
		}

		if opts.Promote {
			if err := s.promoteInTx(ctx, version); err != nil {
				return err
			}
		}
		created = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(name)
	return created, nil
}

// Fetch resolves a prompt version: an exact version number when requested,
// otherwise the single version in the requested state (production by
// default). A miss with a fallback configured yields an unsaved fallback
// version instead of an error.
func (s *PromptStore) Fetch(ctx context.Context, name string, opts FetchOptions) (*models.PromptVersion, error) {
	if err := ValidateRequired(name, "prompt name"); err != nil {
		return nil, err
	}

	key := s.cacheKey(name, opts)
	if version, ok := s.cache.get(key); ok {
		metrics.PromptCacheHits.Inc()
		return version, nil
	}
	metrics.PromptCacheMisses.Inc()

	version, err := s.fetchStored(ctx, name, opts)
	if err != nil {
		if errors.Is(err, domain.ErrPromptNotFound) && opts.Fallback != "" {
			metrics.PromptFallbacksTotal.Inc()
			return models.FallbackVersion(name, opts.Fallback), nil
		}
		return nil, err
	}

	s.cache.put(key, version)
	return version, nil
}

func (s *PromptStore) cacheKey(name string, opts FetchOptions) string {
	if opts.Version > 0 {
		return versionCacheKey(name, opts.Version)
	}
	state := opts.State
	if state == "" {
		state = models.PromptStateProduction
	}
	return stateCacheKey(name, state)
}

func (s *PromptStore) fetchStored(ctx context.Context, name string, opts FetchOptions) (*models.PromptVersion, error) {
	if opts.Version > 0 {
		return s.repo.GetByNameVersion(ctx, name, opts.Version)
	}
	state := opts.State
	if state == "" {
		state = models.PromptStateProduction
	}
	return s.repo.GetByNameState(ctx, name, state)
}

// Promote moves a draft into production, archiving the current production
// version in the same transaction.
func (s *PromptStore) Promote(ctx context.Context, name string, version int) (*models.PromptVersion, error) {
	return s.transition(ctx, name, version, models.PromptStateDraft, models.PromptStateProduction)
}

// Demote retires a production version to archived.
func (s *PromptStore) Demote(ctx context.Context, name string, version int) (*models.PromptVersion, error) {
	return s.transition(ctx, name, version, models.PromptStateProduction, models.PromptStateArchived)
}

// Restore brings an archived version back into production, archiving the
// current production version.
func (s *PromptStore) Restore(ctx context.Context, name string, version int) (*models.PromptVersion, error) {
	return s.transition(ctx, name, version, models.PromptStateArchived, models.PromptStateProduction)
}

// TryPromote is the non-strict variant of Promote: an invalid source state
// reports an unapplied TransitionResult instead of an error.
func (s *PromptStore) TryPromote(ctx context.Context, name string, version int) (*models.TransitionResult, error) {
	return s.tryTransition(ctx, name, version, models.PromptStateDraft, models.PromptStateProduction)
}

// TryDemote is the non-strict variant of Demote.
func (s *PromptStore) TryDemote(ctx context.Context, name string, version int) (*models.TransitionResult, error) {
	return s.tryTransition(ctx, name, version, models.PromptStateProduction, models.PromptStateArchived)
}

// TryRestore is the non-strict variant of Restore.
func (s *PromptStore) TryRestore(ctx context.Context, name string, version int) (*models.TransitionResult, error) {
	return s.tryTransition(ctx, name, version, models.PromptStateArchived, models.PromptStateProduction)
}

// transition applies a strict lifecycle transition. The version must be in
// the operation's source state; anything else, including the target state
// itself, is an InvalidPromptTransitionError.
func (s *PromptStore) transition(ctx context.Context, name string, version int, from, to models.PromptState) (*models.PromptVersion, error) {
	var result *models.PromptVersion
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByNameVersion(ctx, name, version)
		if err != nil {
			return err
		}

		if current.State != from {
			return models.NewPromptSourceStateError(current.State, from, to)
		}

		if to == models.PromptStateProduction {
			if err := s.archiveCurrentProduction(ctx, name, version); err != nil {
				return err
			}
		}

		applied, err := s.repo.UpdateState(ctx, name, version, from, to)
		if err != nil {
			return err
		}
		if !applied {
			return domain.NewDomainError(domain.ErrInvalidState, "version changed state concurrently")
		}

		current.State = to
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(name)
	return result, nil
}

func (s *PromptStore) tryTransition(ctx context.Context, name string, version int, from, to models.PromptState) (*models.TransitionResult, error) {
	current, err := s.repo.GetByNameVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}

	if current.State != from {
		reason := models.NewPromptSourceStateError(current.State, from, to).Message
		if current.State == to {
			reason = "already in target state"
		}
		return &models.TransitionResult{
			Applied: false,
			From:    current.State,
			To:      to,
			Reason:  reason,
		}, nil
	}

	if _, err := s.transition(ctx, name, version, from, to); err != nil {
		return nil, err
	}
	return &models.TransitionResult{Applied: true, From: from, To: to}, nil
}

// promoteInTx promotes a freshly created draft inside the caller's
// transaction.
func (s *PromptStore) promoteInTx(ctx context.Context, version *models.PromptVersion) error {
	if err := s.archiveCurrentProduction(ctx, version.Name, version.Version); err != nil {
		return err
	}
	applied, err := s.repo.UpdateState(ctx, version.Name, version.Version, models.PromptStateDraft, models.PromptStateProduction)
	if err != nil {
		return err
	}
	if !applied {
		return domain.NewDomainError(domain.ErrInvalidState, "version changed state concurrently")
	}
	version.State = models.PromptStateProduction
	return nil
}

// archiveCurrentProduction demotes whatever version currently holds
// production for the name, skipping the version about to take it.
func (s *PromptStore) archiveCurrentProduction(ctx context.Context, name string, incoming int) error {
	current, err := s.repo.GetByNameState(ctx, name, models.PromptStateProduction)
	if err != nil {
		if errors.Is(err, domain.ErrPromptNotFound) {
			return nil
		}
		return err
	}
	if current.Version == incoming {
		return nil
	}

	applied, err := s.repo.UpdateState(ctx, name, current.Version, models.PromptStateProduction, models.PromptStateArchived)
	if err != nil {
		return err
	}
	if !applied {
		return domain.NewDomainError(domain.ErrInvalidState, "production version changed concurrently")
	}
	return nil
}

// UpdateDraft edits the text, config and commit message of a draft.
func (s *PromptStore) UpdateDraft(ctx context.Context, name string, version int, text string, config models.PromptConfig, commitMessage string) (*models.PromptVersion, error) {
	if err := ValidateRequired(text, "prompt text"); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByNameVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if !current.IsEditable() {
		return nil, domain.NewDomainError(domain.ErrPromptNotEditable, "version is in state "+string(current.State))
	}

	current.Text = text
	current.Config = config
	current.CommitMessage = commitMessage
	if err := s.repo.UpdateDraft(ctx, current); err != nil {
		return nil, err
	}

	s.cache.invalidate(name)
	return current, nil
}

// DeleteVersion removes a draft or archived version. Production versions
// must be demoted first.
func (s *PromptStore) DeleteVersion(ctx context.Context, name string, version int) error {
	current, err := s.repo.GetByNameVersion(ctx, name, version)
	if err != nil {
		return err
	}
	if !current.IsDeletable() {
		return domain.NewDomainError(domain.ErrPromptProtected, "demote the production version before deleting it")
	}

	if err := s.repo.Delete(ctx, name, version); err != nil {
		return err
	}

	s.cache.invalidate(name)
	return nil
}

// Clone copies a version's text and config into a new draft with the next
// version number.
func (s *PromptStore) Clone(ctx context.Context, name string, version int) (*models.PromptVersion, error) {
	source, err := s.repo.GetByNameVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}

	var created *models.PromptVersion
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		next, err := s.repo.NextVersion(ctx, name)
		if err != nil {
			return err
		}

		clone := models.NewPromptVersion(s.idGenerator.GeneratePromptVersionID(), name, next, source.Text, source.Config.Clone())
		if err := s.repo.Create(ctx, clone); err != nil {
			return err
		}
		created = clone
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(name)
	return created, nil
}

// Compile fetches a prompt and substitutes variables non-strictly:
// unresolved placeholders stay verbatim.
func (s *PromptStore) Compile(ctx context.Context, name string, opts FetchOptions, vars map[string]any) (string, error) {
	version, err := s.Fetch(ctx, name, opts)
	if err != nil {
		metrics.PromptCompilationsTotal.WithLabelValues("lenient", "error").Inc()
		return "", err
	}
	metrics.PromptCompilationsTotal.WithLabelValues("lenient", "ok").Inc()
	return template.Compile(version.Text, vars), nil
}

// CompileStrict fetches a prompt and fails with a MissingVariablesError
// listing every unresolved placeholder before substituting anything.
func (s *PromptStore) CompileStrict(ctx context.Context, name string, opts FetchOptions, vars map[string]any) (string, error) {
	version, err := s.Fetch(ctx, name, opts)
	if err != nil {
		metrics.PromptCompilationsTotal.WithLabelValues("strict", "error").Inc()
		return "", err
	}

	compiled, err := template.CompileStrict(version.Text, vars)
	if err != nil {
		metrics.PromptCompilationsTotal.WithLabelValues("strict", "error").Inc()
		return "", err
	}
	metrics.PromptCompilationsTotal.WithLabelValues("strict", "ok").Inc()
	return compiled, nil
}

// ListVersions returns every version of a name, newest first.
func (s *PromptStore) ListVersions(ctx context.Context, name string) ([]*models.PromptVersion, error) {
	if err := ValidateRequired(name, "prompt name"); err != nil {
		return nil, err
	}
	return s.repo.ListByName(ctx, name)
}

// ListNames pages through the distinct prompt names.
func (s *PromptStore) ListNames(ctx context.Context, limit, offset int) ([]string, error) {
	return s.repo.ListNames(ctx, normalizeLimit(limit), offset)
}
