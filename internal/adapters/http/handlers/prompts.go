package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/observahq/observa/internal/adapters/http/dto"
	"github.com/observahq/observa/internal/application/services"
	"github.com/observahq/observa/internal/domain/models"
)

type PromptsHandler struct {
	store *services.PromptStore
}

func NewPromptsHandler(store *services.PromptStore) *PromptsHandler {
	return &PromptsHandler{store: store}
}

// Create handles POST /api/v1/prompts/{name}/versions
func (h *PromptsHandler) Create(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "Prompt name")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.CreatePromptVersionRequest](r, w)
	if !ok {
		return
	}

	version, err := h.store.CreateVersion(r.Context(), name, req.Text, req.Config, services.CreateOptions{
		CommitMessage: req.CommitMessage,
		CreatedBy:     req.CreatedBy,
		Promote:       req.Promote,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, version, http.StatusCreated)
}

// Get handles GET /api/v1/prompts/{name}
// Query params: version, state, fallback
func (h *PromptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "Prompt name")
	if !ok {
		return
	}

	version, err := h.store.Fetch(r.Context(), name, fetchOptionsFromQuery(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, version, http.StatusOK)
}

// ListNames handles GET /api/v1/prompts
func (h *PromptsHandler) ListNames(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	names, err := h.store.ListNames(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, &dto.ListResponse[string]{
		Items:  names,
		Total:  len(names),
		Limit:  limit,
		Offset: offset,
	}, http.StatusOK)
}

// ListVersions handles GET /api/v1/prompts/{name}/versions
func (h *PromptsHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "Prompt name")
	if !ok {
		return
	}

	versions, err := h.store.ListVersions(r.Context(), name)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, versions, http.StatusOK)
}

// UpdateDraft handles PUT /api/v1/prompts/{name}/versions/{version}
func (h *PromptsHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	name, versionNum, ok := promptVersionParams(r, w)
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.UpdatePromptVersionRequest](r, w)
	if !ok {
		return
	}

	version, err := h.store.UpdateDraft(r.Context(), name, versionNum, req.Text, req.Config, req.CommitMessage)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, version, http.StatusOK)
}

// Delete handles DELETE /api/v1/prompts/{name}/versions/{version}
func (h *PromptsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, versionNum, ok := promptVersionParams(r, w)
	if !ok {
		return
	}

	if err := h.store.DeleteVersion(r.Context(), name, versionNum); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Promote handles POST /api/v1/prompts/{name}/versions/{version}/promote
// With ?strict=false an invalid transition reports a result instead of 409.
func (h *PromptsHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.Promote, h.store.TryPromote)
}

// Demote handles POST /api/v1/prompts/{name}/versions/{version}/demote
func (h *PromptsHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.Demote, h.store.TryDemote)
}

// Restore handles POST /api/v1/prompts/{name}/versions/{version}/restore
func (h *PromptsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.Restore, h.store.TryRestore)
}

// Clone handles POST /api/v1/prompts/{name}/versions/{version}/clone
func (h *PromptsHandler) Clone(w http.ResponseWriter, r *http.Request) {
	name, versionNum, ok := promptVersionParams(r, w)
	if !ok {
		return
	}

	clone, err := h.store.Clone(r.Context(), name, versionNum)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, clone, http.StatusCreated)
}

// Compile handles POST /api/v1/prompts/{name}/compile
func (h *PromptsHandler) Compile(w http.ResponseWriter, r *http.Request) {
	name, ok := validateURLParam(r, w, "name", "Prompt name")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.CompilePromptRequest](r, w)
	if !ok {
		return
	}

	opts := services.FetchOptions{
		Version:  req.Version,
		State:    models.PromptState(req.State),
		Fallback: req.Fallback,
	}

	var compiled string
	var err error
	if req.Strict {
		compiled, err = h.store.CompileStrict(r.Context(), name, opts, req.Variables)
	} else {
		compiled, err = h.store.Compile(r.Context(), name, opts, req.Variables)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, &dto.CompilePromptResponse{Compiled: compiled}, http.StatusOK)
}

func (h *PromptsHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	strict func(ctx context.Context, name string, version int) (*models.PromptVersion, error),
	try func(ctx context.Context, name string, version int) (*models.TransitionResult, error),
) {
	name, versionNum, ok := promptVersionParams(r, w)
	if !ok {
		return
	}

	if r.URL.Query().Get("strict") == "false" {
		result, err := try(r.Context(), name, versionNum)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, result, http.StatusOK)
		return
	}

	version, err := strict(r.Context(), name, versionNum)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, version, http.StatusOK)
}

func promptVersionParams(r *http.Request, w http.ResponseWriter) (string, int, bool) {
	name, ok := validateURLParam(r, w, "name", "Prompt name")
	if !ok {
		return "", 0, false
	}
	versionStr, ok := validateURLParam(r, w, "version", "Version")
	if !ok {
		return "", 0, false
	}
	versionNum, err := strconv.Atoi(versionStr)
	if err != nil || versionNum < 1 {
		respondError(w, "invalid_request", "Version must be a positive integer", http.StatusBadRequest)
		return "", 0, false
	}
	return name, versionNum, true
}

func fetchOptionsFromQuery(r *http.Request) services.FetchOptions {
	return services.FetchOptions{
		Version:  parseIntQuery(r, "version", 0),
		State:    models.PromptState(r.URL.Query().Get("state")),
		Fallback: r.URL.Query().Get("fallback"),
	}
}
