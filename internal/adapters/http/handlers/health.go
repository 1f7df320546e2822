package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/adapters/circuitbreaker"
	"github.com/observahq/observa/internal/adapters/embedding"
	"github.com/observahq/observa/internal/config"
	"github.com/observahq/observa/internal/llm"
)

// HealthCheckConfig holds configuration for health checks
type HealthCheckConfig struct {
	Timeout time.Duration // Timeout for each individual health check
}

// DefaultHealthCheckConfig returns default health check configuration
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Timeout: 5 * time.Second,
	}
}

type HealthHandler struct {
	config          HealthCheckConfig
	cfg             *config.Config
	db              *pgxpool.Pool
	llmClient       *llm.Client
	embeddingClient *embedding.Client
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		config: DefaultHealthCheckConfig(),
	}
}

func NewHealthHandlerWithDeps(
	cfg *config.Config,
	db *pgxpool.Pool,
	llmClient *llm.Client,
	embeddingClient *embedding.Client,
) *HealthHandler {
	return &HealthHandler{
		config:          DefaultHealthCheckConfig(),
		cfg:             cfg,
		db:              db,
		llmClient:       llmClient,
		embeddingClient: embeddingClient,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type DetailedHealthResponse struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Services map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status    string  `json:"status"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// Handle provides a basic health check endpoint
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// HandleDetailed provides a detailed health check endpoint that checks all dependencies
func (h *HealthHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := DetailedHealthResponse{
		Version:  "1.0.0",
		Services: make(map[string]ServiceHealth),
	}

	if h.db != nil {
		response.Services["database"] = h.checkDatabase(ctx)
	}

	if h.llmClient != nil {
		response.Services["llm"] = h.checkLLM(ctx)
	}

	if h.cfg != nil && h.cfg.IsEmbeddingConfigured() && h.embeddingClient != nil {
		response.Services["embedding"] = h.checkEmbedding(ctx)
	}

	response.Status = h.calculateOverallStatus(response.Services)

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	err := h.db.Ping(checkCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		return ServiceHealth{
			Status:    "unhealthy",
			LatencyMs: &latency,
			Error:     &errMsg,
		}
	}

	return ServiceHealth{
		Status:    "healthy",
		LatencyMs: &latency,
	}
}

// checkLLM checks LLM service availability
func (h *HealthHandler) checkLLM(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	// Simple ping by sending a minimal chat request
	messages := []llm.ChatMessage{
		{Role: "system", Content: "health check"},
		{Role: "user", Content: "ping"},
	}

	_, err := h.llmClient.Chat(checkCtx, messages)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		return ServiceHealth{
			Status:    "unhealthy",
			LatencyMs: &latency,
			Error:     &errMsg,
		}
	}

	return ServiceHealth{
		Status:    "healthy",
		LatencyMs: &latency,
	}
}

// checkEmbedding checks embedding service availability. An open circuit
// breaker is reported directly instead of issuing a doomed request.
func (h *HealthHandler) checkEmbedding(ctx context.Context) ServiceHealth {
	if h.embeddingClient.CircuitState() == circuitbreaker.StateOpen {
		errMsg := circuitbreaker.ErrCircuitOpen.Error()
		return ServiceHealth{
			Status: "unhealthy",
			Error:  &errMsg,
		}
	}

	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	_, err := h.embeddingClient.Embed(checkCtx, "health check")
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		return ServiceHealth{
			Status:    "unhealthy",
			LatencyMs: &latency,
			Error:     &errMsg,
		}
	}

	return ServiceHealth{
		Status:    "healthy",
		LatencyMs: &latency,
	}
}

// calculateOverallStatus derives the aggregate status: unhealthy if the
// database is down, degraded if any optional dependency is down.
func (h *HealthHandler) calculateOverallStatus(services map[string]ServiceHealth) string {
	if db, ok := services["database"]; ok && db.Status == "unhealthy" {
		return "unhealthy"
	}
	for _, svc := range services {
		if svc.Status == "unhealthy" {
			return "degraded"
		}
	}
	return "healthy"
}
