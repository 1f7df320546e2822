package handlers

import (
	"net/http"
	"time"

	"github.com/observahq/observa/internal/adapters/http/dto"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

type TracesHandler struct {
	traces   ports.TraceRepository
	sessions ports.SessionRepository
	idGen    ports.IDGenerator
}

func NewTracesHandler(traces ports.TraceRepository, sessions ports.SessionRepository, idGen ports.IDGenerator) *TracesHandler {
	return &TracesHandler{
		traces:   traces,
		sessions: sessions,
		idGen:    idGen,
	}
}

// Create handles POST /api/v1/traces
func (h *TracesHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[dto.CreateTraceRequest](r, w)
	if !ok {
		return
	}

	trace := &models.Trace{
		ID:         h.idGen.GenerateTraceID(),
		Name:       req.Name,
		SessionID:  req.SessionID,
		Input:      req.Input,
		Output:     req.Output,
		Metadata:   req.Metadata,
		Cost:       req.Cost,
		Tokens:     req.Tokens,
		DurationMS: req.DurationMS,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.traces.Create(r.Context(), trace); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, trace, http.StatusCreated)
}

// Get handles GET /api/v1/traces/{id}
func (h *TracesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Trace ID")
	if !ok {
		return
	}

	trace, err := h.traces.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, trace, http.StatusOK)
}

// AddObservation handles POST /api/v1/traces/{id}/observations
// Trace cost and token totals are recomputed from its observations.
func (h *TracesHandler) AddObservation(w http.ResponseWriter, r *http.Request) {
	traceID, ok := validateURLParam(r, w, "id", "Trace ID")
	if !ok {
		return
	}
	req, ok := decodeJSON[dto.CreateObservationRequest](r, w)
	if !ok {
		return
	}

	obsType := models.ObservationType(req.Type)
	switch obsType {
	case models.ObservationSpan, models.ObservationGeneration, models.ObservationEvent:
	default:
		respondDomainError(w, domain.NewDomainError(domain.ErrInvalidInput, "observation type must be span, generation or event"))
		return
	}

	if _, err := h.traces.GetByID(r.Context(), traceID); err != nil {
		respondDomainError(w, err)
		return
	}

	obs := &models.Observation{
		ID:          h.idGen.GenerateObservationID(),
		TraceID:     traceID,
		Type:        obsType,
		Name:        req.Name,
		Model:       req.Model,
		TotalTokens: req.TotalTokens,
		Cost:        req.Cost,
		Input:       req.Input,
		Output:      req.Output,
		StartedAt:   time.Now().UTC(),
	}

	if err := h.traces.CreateObservation(r.Context(), obs); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.traces.RecomputeMetrics(r.Context(), traceID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, obs, http.StatusCreated)
}

// ListObservations handles GET /api/v1/traces/{id}/observations
func (h *TracesHandler) ListObservations(w http.ResponseWriter, r *http.Request) {
	traceID, ok := validateURLParam(r, w, "id", "Trace ID")
	if !ok {
		return
	}

	observations, err := h.traces.ListObservations(r.Context(), traceID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, observations, http.StatusOK)
}

// CreateSession handles POST /api/v1/sessions
func (h *TracesHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[dto.CreateSessionRequest](r, w)
	if !ok {
		return
	}

	session := &models.Session{
		ID:        h.idGen.GenerateSessionID(),
		Name:      req.Name,
		UserID:    req.UserID,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.sessions.Create(r.Context(), session); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, session, http.StatusCreated)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *TracesHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Session ID")
	if !ok {
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, session, http.StatusOK)
}

// ListSessionTraces handles GET /api/v1/sessions/{id}/traces
func (h *TracesHandler) ListSessionTraces(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Session ID")
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	traces, err := h.traces.ListBySession(r.Context(), id, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, traces, http.StatusOK)
}

// ListSessions handles GET /api/v1/sessions
func (h *TracesHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	sessions, err := h.sessions.List(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, sessions, http.StatusOK)
}
