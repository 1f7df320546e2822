package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

func newTestPromptStore(repo *MockPromptVersionRepository) *PromptStore {
	return NewPromptStore(repo, &mockTxManager{}, &mockIDGenerator{})
}

func TestPromptStore_CreateVersion(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)
	ctx := context.Background()

	repo.On("NextVersion", mock.Anything, "greeting").Return(3, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(v *models.PromptVersion) bool {
		return v.Name == "greeting" && v.Version == 3 && v.State == models.PromptStateDraft
	})).Return(nil)

	version, err := store.CreateVersion(ctx, "greeting", "Hello {{name}}", models.PromptConfig{}, CreateOptions{
		CommitMessage: "tweak greeting",
		CreatedBy:     "alice",
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, version.Version)
	assert.Equal(t, models.PromptStateDraft, version.State)
	assert.Equal(t, "tweak greeting", version.CommitMessage)
	repo.AssertExpectations(t)
}

func TestPromptStore_CreateVersion_EmptyName(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	_, err := store.CreateVersion(context.Background(), "", "text", models.PromptConfig{}, CreateOptions{})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create")
}

func TestPromptStore_CreateVersion_WithPromote(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)
	ctx := context.Background()

	current := &models.PromptVersion{Name: "greeting", Version: 2, State: models.PromptStateProduction}

	repo.On("NextVersion", mock.Anything, "greeting").Return(3, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(current, nil)
	repo.On("UpdateState", mock.Anything, "greeting", 2, models.PromptStateProduction, models.PromptStateArchived).Return(true, nil)
	repo.On("UpdateState", mock.Anything, "greeting", 3, models.PromptStateDraft, models.PromptStateProduction).Return(true, nil)

	version, err := store.CreateVersion(ctx, "greeting", "Hello", models.PromptConfig{}, CreateOptions{Promote: true})

	assert.NoError(t, err)
	assert.Equal(t, models.PromptStateProduction, version.State)
	repo.AssertExpectations(t)
}

func TestPromptStore_Fetch_ProductionDefault(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	stored := models.NewPromptVersion("pv_1", "greeting", 2, "Hello", models.PromptConfig{})
	stored.State = models.PromptStateProduction
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(stored, nil)

	version, err := store.Fetch(context.Background(), "greeting", FetchOptions{})

	assert.NoError(t, err)
	assert.Equal(t, 2, version.Version)
	repo.AssertExpectations(t)
}

func TestPromptStore_Fetch_CachesResult(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	stored := models.NewPromptVersion("pv_1", "greeting", 2, "Hello", models.PromptConfig{})
	stored.State = models.PromptStateProduction
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(stored, nil).Once()

	first, err := store.Fetch(context.Background(), "greeting", FetchOptions{})
	assert.NoError(t, err)
	second, err := store.Fetch(context.Background(), "greeting", FetchOptions{})
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	repo.AssertExpectations(t)
}

func TestPromptStore_Fetch_FallbackOnMiss(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	repo.On("GetByNameState", mock.Anything, "missing", models.PromptStateProduction).Return(nil, domain.ErrPromptNotFound)

	version, err := store.Fetch(context.Background(), "missing", FetchOptions{Fallback: "You are a helpful assistant."})

	assert.NoError(t, err)
	assert.True(t, version.IsFallback())
	assert.Equal(t, "You are a helpful assistant.", version.Text)
}

func TestPromptStore_Fetch_FallbackNotCached(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	repo.On("GetByNameState", mock.Anything, "missing", models.PromptStateProduction).Return(nil, domain.ErrPromptNotFound).Twice()

	_, err := store.Fetch(context.Background(), "missing", FetchOptions{Fallback: "fallback"})
	assert.NoError(t, err)
	_, err = store.Fetch(context.Background(), "missing", FetchOptions{Fallback: "fallback"})
	assert.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestPromptStore_Fetch_NoFallbackPropagatesMiss(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	repo.On("GetByNameVersion", mock.Anything, "missing", 7).Return(nil, domain.ErrPromptNotFound)

	_, err := store.Fetch(context.Background(), "missing", FetchOptions{Version: 7})

	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestPromptStore_Promote_ArchivesCurrentProduction(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	draft := &models.PromptVersion{Name: "greeting", Version: 3, State: models.PromptStateDraft}
	production := &models.PromptVersion{Name: "greeting", Version: 2, State: models.PromptStateProduction}

	repo.On("GetByNameVersion", mock.Anything, "greeting", 3).Return(draft, nil)
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(production, nil)
	repo.On("UpdateState", mock.Anything, "greeting", 2, models.PromptStateProduction, models.PromptStateArchived).Return(true, nil)
	repo.On("UpdateState", mock.Anything, "greeting", 3, models.PromptStateDraft, models.PromptStateProduction).Return(true, nil)

	promoted, err := store.Promote(context.Background(), "greeting", 3)

	assert.NoError(t, err)
	assert.Equal(t, models.PromptStateProduction, promoted.State)
	repo.AssertExpectations(t)
}

func TestPromptStore_Promote_FirstProduction(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	draft := &models.PromptVersion{Name: "greeting", Version: 1, State: models.PromptStateDraft}

	repo.On("GetByNameVersion", mock.Anything, "greeting", 1).Return(draft, nil)
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(nil, domain.ErrPromptNotFound)
	repo.On("UpdateState", mock.Anything, "greeting", 1, models.PromptStateDraft, models.PromptStateProduction).Return(true, nil)

	promoted, err := store.Promote(context.Background(), "greeting", 1)

	assert.NoError(t, err)
	assert.Equal(t, models.PromptStateProduction, promoted.State)
}

func TestPromptStore_Restore_FromArchived(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	archived := &models.PromptVersion{Name: "greeting", Version: 1, State: models.PromptStateArchived}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 1).Return(archived, nil)
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(nil, domain.ErrPromptNotFound)
	repo.On("UpdateState", mock.Anything, "greeting", 1, models.PromptStateArchived, models.PromptStateProduction).Return(true, nil)

	promoted, err := store.Restore(context.Background(), "greeting", 1)

	assert.NoError(t, err)
	assert.Equal(t, models.PromptStateProduction, promoted.State)
}

func TestPromptStore_Promote_OnProductionFails(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	production := &models.PromptVersion{Name: "greeting", Version: 2, State: models.PromptStateProduction}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 2).Return(production, nil)

	_, err := store.Promote(context.Background(), "greeting", 2)

	var invalid *models.InvalidPromptTransitionError
	assert.ErrorAs(t, err, &invalid)
	repo.AssertNotCalled(t, "UpdateState")
}

func TestPromptStore_Promote_OnArchivedFails(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	archived := &models.PromptVersion{Name: "greeting", Version: 1, State: models.PromptStateArchived}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 1).Return(archived, nil)

	_, err := store.Promote(context.Background(), "greeting", 1)

	var invalid *models.InvalidPromptTransitionError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.PromptStateArchived, invalid.From)
	repo.AssertNotCalled(t, "UpdateState")
}

func TestPromptStore_Restore_FromDraftFails(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	draft := &models.PromptVersion{Name: "greeting", Version: 3, State: models.PromptStateDraft}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 3).Return(draft, nil)

	_, err := store.Restore(context.Background(), "greeting", 3)

	var invalid *models.InvalidPromptTransitionError
	assert.ErrorAs(t, err, &invalid)
	repo.AssertNotCalled(t, "UpdateState")
}

func TestPromptStore_Demote_FromDraftFails(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	draft := &models.PromptVersion{Name: "greeting", Version: 1, State: models.PromptStateDraft}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 1).Return(draft, nil)

	_, err := store.Demote(context.Background(), "greeting", 1)

	var invalid *models.InvalidPromptTransitionError
	assert.ErrorAs(t, err, &invalid)
	repo.AssertNotCalled(t, "UpdateState")
}

func TestPromptStore_TryDemote_ReportsInsteadOfFailing(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	draft := &models.PromptVersion{Name: "greeting", Version: 1, State: models.PromptStateDraft}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 1).Return(draft, nil)

	result, err := store.TryDemote(context.Background(), "greeting", 1)

	assert.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, models.PromptStateDraft, result.From)
	assert.Equal(t, models.PromptStateArchived, result.To)
	assert.NotEmpty(t, result.Reason)
}

func TestPromptStore_TryPromote_AlreadyInTargetState(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	production := &models.PromptVersion{Name: "greeting", Version: 2, State: models.PromptStateProduction}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 2).Return(production, nil)

	result, err := store.TryPromote(context.Background(), "greeting", 2)

	assert.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, "already in target state", result.Reason)
}

func TestPromptStore_UpdateDraft_RejectsProduction(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	production := &models.PromptVersion{Name: "greeting", Version: 2, State: models.PromptStateProduction}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 2).Return(production, nil)

	_, err := store.UpdateDraft(context.Background(), "greeting", 2, "new text", models.PromptConfig{}, "")

	assert.ErrorIs(t, err, domain.ErrPromptNotEditable)
	repo.AssertNotCalled(t, "UpdateDraft")
}

func TestPromptStore_DeleteVersion_RejectsProduction(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	production := &models.PromptVersion{Name: "greeting", Version: 2, State: models.PromptStateProduction}
	repo.On("GetByNameVersion", mock.Anything, "greeting", 2).Return(production, nil)

	err := store.DeleteVersion(context.Background(), "greeting", 2)

	assert.ErrorIs(t, err, domain.ErrPromptProtected)
	repo.AssertNotCalled(t, "Delete")
}

func TestPromptStore_Clone_CopiesTextAndConfig(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	temp := 0.7
	source := models.NewPromptVersion("pv_1", "greeting", 2, "Hello {{name}}", models.PromptConfig{Temperature: &temp})
	source.State = models.PromptStateArchived

	repo.On("GetByNameVersion", mock.Anything, "greeting", 2).Return(source, nil)
	repo.On("NextVersion", mock.Anything, "greeting").Return(5, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(v *models.PromptVersion) bool {
		return v.Version == 5 && v.State == models.PromptStateDraft && v.Text == "Hello {{name}}"
	})).Return(nil)

	clone, err := store.Clone(context.Background(), "greeting", 2)

	assert.NoError(t, err)
	assert.Equal(t, 5, clone.Version)
	assert.NotNil(t, clone.Config.Temperature)
	assert.Equal(t, 0.7, *clone.Config.Temperature)
	// Deep copy: mutating the clone's config must not touch the source.
	*clone.Config.Temperature = 1.5
	assert.Equal(t, 0.7, *source.Config.Temperature)
}

func TestPromptStore_Compile_LeavesUnresolvedVerbatim(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	stored := models.NewPromptVersion("pv_1", "greeting", 1, "Hello {{name}}, {{missing}}", models.PromptConfig{})
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(stored, nil)

	compiled, err := store.Compile(context.Background(), "greeting", FetchOptions{}, map[string]any{"name": "Ada"})

	assert.NoError(t, err)
	assert.Equal(t, "Hello Ada, {{missing}}", compiled)
}

func TestPromptStore_CompileStrict_ListsMissingVariables(t *testing.T) {
	repo := new(MockPromptVersionRepository)
	store := newTestPromptStore(repo)

	stored := models.NewPromptVersion("pv_1", "greeting", 1, "Hello {{name}}, {{missing}}", models.PromptConfig{})
	repo.On("GetByNameState", mock.Anything, "greeting", models.PromptStateProduction).Return(stored, nil)

	_, err := store.CompileStrict(context.Background(), "greeting", FetchOptions{}, map[string]any{"name": "Ada"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
