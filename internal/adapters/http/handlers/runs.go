package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/observahq/observa/internal/adapters/http/dto"
	"github.com/observahq/observa/internal/application/services"
	"github.com/observahq/observa/internal/domain/models"
)

type RunsHandler struct {
	orchestrator *services.RunOrchestrator
}

func NewRunsHandler(orchestrator *services.RunOrchestrator) *RunsHandler {
	return &RunsHandler{orchestrator: orchestrator}
}

// Create handles POST /api/v1/datasets/{id}/runs
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.CreateRunRequest](r, w)
	if !ok {
		return
	}

	run, err := h.orchestrator.CreateRun(r.Context(), datasetID, req.Name, req.Metadata)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, run, http.StatusCreated)
}

// Execute handles POST /api/v1/runs/{id}/execute
// The run executes in the background; progress streams over SSE and the
// accepted response carries the run in its current state.
func (h *RunsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	run, err := h.orchestrator.GetRun(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if run.Status != models.RunStatusPending {
		respondDomainError(w, models.NewInvalidRunTransitionError(run.Status, models.RunStatusRunning))
		return
	}

	// Detached from the request context: closing the HTTP connection
	// must not cancel the run.
	go func() {
		if _, err := h.orchestrator.Execute(context.Background(), id); err != nil {
			log.Printf("run %s execution failed: %v", id, err)
		}
	}()

	respondJSON(w, run, http.StatusAccepted)
}

// Get handles GET /api/v1/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	run, err := h.orchestrator.GetRun(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, run, http.StatusOK)
}

// List handles GET /api/v1/datasets/{id}/runs
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	runs, err := h.orchestrator.ListRuns(r.Context(), datasetID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, &dto.ListResponse[*models.DatasetRun]{
		Items:  runs,
		Total:  len(runs),
		Limit:  limit,
		Offset: offset,
	}, http.StatusOK)
}

// ListItems handles GET /api/v1/runs/{id}/items
func (h *RunsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	items, err := h.orchestrator.ListRunItems(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, items, http.StatusOK)
}
