package handlers

import (
	"net/http"
	"time"

	"github.com/observahq/observa/internal/adapters/http/dto"
	"github.com/observahq/observa/internal/adapters/metrics"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

type ScoresHandler struct {
	scores ports.ScoreRepository
	idGen  ports.IDGenerator
}

func NewScoresHandler(scores ports.ScoreRepository, idGen ports.IDGenerator) *ScoresHandler {
	return &ScoresHandler{
		scores: scores,
		idGen:  idGen,
	}
}

// Upsert handles POST /api/v1/scores
// Re-scoring the same (scoreable, name, source) updates the existing row.
func (h *ScoresHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[dto.UpsertScoreRequest](r, w)
	if !ok {
		return
	}

	scoreableType, err := models.ParseScoreableType(req.ScoreableType)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	source := models.ScoreSource(req.Source)
	if source == "" {
		source = models.ScoreSourceManual
	}
	dataType := models.ScoreDataType(req.DataType)
	if dataType == "" {
		dataType = models.ScoreDataNumeric
	}

	now := time.Now().UTC()
	score := &models.Score{
		ID:          h.idGen.GenerateScoreID(),
		Scoreable:   models.Scoreable{Type: scoreableType, ID: req.ScoreableID},
		Name:        req.Name,
		StringValue: req.StringValue,
		DataType:    dataType,
		Source:      source,
		Comment:     req.Comment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Value != nil {
		score.Value = *req.Value
	}

	if err := score.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.scores.Upsert(r.Context(), score); err != nil {
		respondDomainError(w, err)
		return
	}
	metrics.ScoresWrittenTotal.WithLabelValues(string(score.Source)).Inc()

	respondJSON(w, score, http.StatusCreated)
}

// ListByScoreable handles GET /api/v1/scores?scoreable_type=trace&scoreable_id=tr_xxx
func (h *ScoresHandler) ListByScoreable(w http.ResponseWriter, r *http.Request) {
	scoreableType, err := models.ParseScoreableType(r.URL.Query().Get("scoreable_type"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	scoreableID := r.URL.Query().Get("scoreable_id")
	if scoreableID == "" {
		respondDomainError(w, domain.NewDomainError(domain.ErrInvalidInput, "scoreable_id is required"))
		return
	}

	scores, err := h.scores.ListByScoreable(r.Context(), models.Scoreable{Type: scoreableType, ID: scoreableID})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, scores, http.StatusOK)
}

// Get handles GET /api/v1/scores/{id}
func (h *ScoresHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Score ID")
	if !ok {
		return
	}

	score, err := h.scores.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, score, http.StatusOK)
}

// Delete handles DELETE /api/v1/scores/{id}
func (h *ScoresHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "Score ID")
	if !ok {
		return
	}

	if err := h.scores.Delete(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
