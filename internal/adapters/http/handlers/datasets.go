package handlers

import (
	"net/http"
	"strings"

	"github.com/observahq/observa/internal/adapters/http/dto"
	"github.com/observahq/observa/internal/application/services"
	"github.com/observahq/observa/internal/domain/models"
)

const MaxDatasetNameLength = 255

type DatasetsHandler struct {
	service *services.DatasetService
}

func NewDatasetsHandler(service *services.DatasetService) *DatasetsHandler {
	return &DatasetsHandler{service: service}
}

// Create handles POST /api/v1/datasets
func (h *DatasetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[dto.CreateDatasetRequest](r, w)
	if !ok {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, "validation_error", "Name is required", http.StatusBadRequest)
		return
	}
	if len(req.Name) > MaxDatasetNameLength {
		respondError(w, "validation_error", "Name exceeds maximum length of 255 characters", http.StatusBadRequest)
		return
	}

	dataset, err := h.service.CreateDataset(r.Context(), req.Name, req.Description, req.AgentReference, req.Metadata)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, dataset, http.StatusCreated)
}

// List handles GET /api/v1/datasets
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	datasets, err := h.service.ListDatasets(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, &dto.ListResponse[*models.Dataset]{
		Items:  datasets,
		Total:  len(datasets),
		Limit:  limit,
		Offset: offset,
	}, http.StatusOK)
}

// Get handles GET /api/v1/datasets/{id}
func (h *DatasetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}

	dataset, err := h.service.GetDataset(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, dataset, http.StatusOK)
}

// Patch handles PATCH /api/v1/datasets/{id}
func (h *DatasetsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.UpdateDatasetRequest](r, w)
	if !ok {
		return
	}

	dataset, err := h.service.GetDataset(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if req.Description != nil {
		dataset.Description = *req.Description
	}
	if req.AgentReference != nil {
		dataset.AgentReference = *req.AgentReference
	}
	if req.Metadata != nil {
		dataset.Metadata = req.Metadata
	}

	if err := h.service.UpdateDataset(r.Context(), dataset); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, dataset, http.StatusOK)
}

// Delete handles DELETE /api/v1/datasets/{id}
func (h *DatasetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}

	if err := h.service.DeleteDataset(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/datasets/{id}/items
func (h *DatasetsHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.CreateDatasetItemRequest](r, w)
	if !ok {
		return
	}

	item, err := h.service.AddItem(r.Context(), id, req.Input, req.ExpectedOutput, req.SourceTraceID, req.Metadata)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, item, http.StatusCreated)
}

// ListItems handles GET /api/v1/datasets/{id}/items
func (h *DatasetsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	items, err := h.service.ListItems(r.Context(), id, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, &dto.ListResponse[*models.DatasetItem]{
		Items:  items,
		Total:  len(items),
		Limit:  limit,
		Offset: offset,
	}, http.StatusOK)
}

// GetItem handles GET /api/v1/items/{id}
func (h *DatasetsHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Item ID")
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, item, http.StatusOK)
}

// ArchiveItem handles POST /api/v1/items/{id}/archive
func (h *DatasetsHandler) ArchiveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Item ID")
	if !ok {
		return
	}

	if err := h.service.ArchiveItem(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchSimilar handles POST /api/v1/datasets/{id}/items/search
func (h *DatasetsHandler) SearchSimilar(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Dataset ID")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.SearchSimilarRequest](r, w)
	if !ok {
		return
	}

	items, err := h.service.SearchSimilarItems(r.Context(), id, req.Query, req.Limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, items, http.StatusOK)
}
