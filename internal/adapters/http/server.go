package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/adapters/embedding"
	"github.com/observahq/observa/internal/adapters/http/handlers"
	"github.com/observahq/observa/internal/adapters/http/middleware"
	"github.com/observahq/observa/internal/application/services"
	"github.com/observahq/observa/internal/config"
	"github.com/observahq/observa/internal/llm"
	"github.com/observahq/observa/internal/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	config          *config.Config
	router          *chi.Mux
	httpServer      *http.Server
	db              *pgxpool.Pool
	llmClient       *llm.Client
	embeddingClient *embedding.Client
	promptStore     *services.PromptStore
	datasetService  *services.DatasetService
	orchestrator    *services.RunOrchestrator
	scoreRepo       ports.ScoreRepository
	traceRepo       ports.TraceRepository
	sessionRepo     ports.SessionRepository
	idGen           ports.IDGenerator
	sseBroadcaster  *handlers.SSEBroadcaster
}

func NewServer(
	cfg *config.Config,
	db *pgxpool.Pool,
	llmClient *llm.Client,
	embeddingClient *embedding.Client,
	promptStore *services.PromptStore,
	datasetService *services.DatasetService,
	orchestrator *services.RunOrchestrator,
	scoreRepo ports.ScoreRepository,
	traceRepo ports.TraceRepository,
	sessionRepo ports.SessionRepository,
	idGen ports.IDGenerator,
	sseBroadcaster *handlers.SSEBroadcaster,
) *Server {
	s := &Server{
		config:          cfg,
		db:              db,
		llmClient:       llmClient,
		embeddingClient: embeddingClient,
		promptStore:     promptStore,
		datasetService:  datasetService,
		orchestrator:    orchestrator,
		scoreRepo:       scoreRepo,
		traceRepo:       traceRepo,
		sessionRepo:     sessionRepo,
		idGen:           idGen,
		sseBroadcaster:  sseBroadcaster,
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	r.Use(middleware.Metrics)

	healthHandler := handlers.NewHealthHandler()
	detailedHealthHandler := handlers.NewHealthHandlerWithDeps(
		s.config,
		s.db,
		s.llmClient,
		s.embeddingClient,
	)
	r.Get("/health", healthHandler.Handle)
	r.Get("/health/detailed", detailedHealthHandler.HandleDetailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		promptsHandler := handlers.NewPromptsHandler(s.promptStore)
		r.Get("/prompts", promptsHandler.ListNames)
		r.Get("/prompts/{name}", promptsHandler.Get)
		r.Post("/prompts/{name}/compile", promptsHandler.Compile)
		r.Get("/prompts/{name}/versions", promptsHandler.ListVersions)
		r.Post("/prompts/{name}/versions", promptsHandler.Create)
		r.Put("/prompts/{name}/versions/{version}", promptsHandler.UpdateDraft)
		r.Delete("/prompts/{name}/versions/{version}", promptsHandler.Delete)
		r.Post("/prompts/{name}/versions/{version}/promote", promptsHandler.Promote)
		r.Post("/prompts/{name}/versions/{version}/demote", promptsHandler.Demote)
		r.Post("/prompts/{name}/versions/{version}/restore", promptsHandler.Restore)
		r.Post("/prompts/{name}/versions/{version}/clone", promptsHandler.Clone)

		datasetsHandler := handlers.NewDatasetsHandler(s.datasetService)
		r.Post("/datasets", datasetsHandler.Create)
		r.Get("/datasets", datasetsHandler.List)
		r.Get("/datasets/{id}", datasetsHandler.Get)
		r.Patch("/datasets/{id}", datasetsHandler.Patch)
		r.Delete("/datasets/{id}", datasetsHandler.Delete)
		r.Post("/datasets/{id}/items", datasetsHandler.AddItem)
		r.Get("/datasets/{id}/items", datasetsHandler.ListItems)
		r.Post("/datasets/{id}/items/search", datasetsHandler.SearchSimilar)
		r.Get("/items/{id}", datasetsHandler.GetItem)
		r.Post("/items/{id}/archive", datasetsHandler.ArchiveItem)

		runsHandler := handlers.NewRunsHandler(s.orchestrator)
		r.Post("/datasets/{id}/runs", runsHandler.Create)
		r.Get("/datasets/{id}/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Post("/runs/{id}/execute", runsHandler.Execute)
		r.Get("/runs/{id}/items", runsHandler.ListItems)

		sseHandler := handlers.NewSSEHandler(s.orchestrator, s.sseBroadcaster)
		r.Get("/runs/{id}/events", sseHandler.StreamEvents)

		scoresHandler := handlers.NewScoresHandler(s.scoreRepo, s.idGen)
		r.Post("/scores", scoresHandler.Upsert)
		r.Get("/scores", scoresHandler.ListByScoreable)
		r.Get("/scores/{id}", scoresHandler.Get)
		r.Delete("/scores/{id}", scoresHandler.Delete)

		tracesHandler := handlers.NewTracesHandler(s.traceRepo, s.sessionRepo, s.idGen)
		r.Post("/traces", tracesHandler.Create)
		r.Get("/traces/{id}", tracesHandler.Get)
		r.Post("/traces/{id}/observations", tracesHandler.AddObservation)
		r.Get("/traces/{id}/observations", tracesHandler.ListObservations)
		r.Post("/sessions", tracesHandler.CreateSession)
		r.Get("/sessions", tracesHandler.ListSessions)
		r.Get("/sessions/{id}", tracesHandler.GetSession)
		r.Get("/sessions/{id}/traces", tracesHandler.ListSessionTraces)
	})

	s.router = r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE streaming
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
