package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/observahq/observa/internal/adapters/http/dto"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/template"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, errorType string, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.NewErrorResponse(errorType, message, status))
}

// respondDomainError maps domain sentinels onto HTTP statuses
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPromptNotFound),
		errors.Is(err, domain.ErrDatasetNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrRunItemNotFound),
		errors.Is(err, domain.ErrScoreNotFound),
		errors.Is(err, domain.ErrTraceNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNotFound):
		respondError(w, "not_found", err.Error(), http.StatusNotFound)

	case errors.Is(err, domain.ErrDatasetExists),
		errors.Is(err, domain.ErrRunNameTaken),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrPromptNotEditable),
		errors.Is(err, domain.ErrPromptProtected):
		respondError(w, "conflict", err.Error(), http.StatusConflict)

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidScoreable),
		errors.Is(err, domain.ErrUnknownEvaluator):
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)

	case errors.Is(err, domain.ErrAgentUnavailable),
		errors.Is(err, domain.ErrEmbeddingsFailed):
		respondError(w, "upstream_error", err.Error(), http.StatusBadGateway)

	default:
		var invalidPrompt *models.InvalidPromptTransitionError
		var invalidRun *models.InvalidRunTransitionError
		var missingVars *template.MissingVariablesError
		if errors.As(err, &invalidPrompt) || errors.As(err, &invalidRun) {
			respondError(w, "invalid_transition", err.Error(), http.StatusConflict)
			return
		}
		if errors.As(err, &missingVars) {
			respondError(w, "missing_variables", err.Error(), http.StatusBadRequest)
			return
		}
		respondError(w, "internal_error", "Internal server error", http.StatusInternalServerError)
	}
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, name string, defaultValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// validateURLParam validates and returns a URL parameter
func validateURLParam(r *http.Request, w http.ResponseWriter, paramName, errorField string) (string, bool) {
	value := chi.URLParam(r, paramName)
	if value == "" {
		respondError(w, "invalid_request", errorField+" is required", http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// decodeJSON decodes JSON request body with error handling
func decodeJSON[T any](r *http.Request, w http.ResponseWriter) (*T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024) // 1MB limit

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid_request", "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}
