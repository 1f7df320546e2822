package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/observahq/observa/internal/adapters/embedding"
	httpadapter "github.com/observahq/observa/internal/adapters/http"
	"github.com/observahq/observa/internal/adapters/http/handlers"
	"github.com/observahq/observa/internal/adapters/id"
	"github.com/observahq/observa/internal/adapters/postgres"
	"github.com/observahq/observa/internal/adapters/tracing"
	"github.com/observahq/observa/internal/application/services"
	"github.com/observahq/observa/internal/evaluation"
	"github.com/observahq/observa/internal/llm"
	"github.com/observahq/observa/internal/ports"
	"github.com/spf13/cobra"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Observa HTTP API server.

The server provides REST endpoints for prompt version management,
datasets, evaluation runs and scores, plus SSE streams for run progress.

Required configuration:
  - PostgreSQL database (OBSERVA_POSTGRES_URL)
  - LLM endpoint (OBSERVA_LLM_URL)

Optional:
  - Embedding service for similarity search (OBSERVA_EMBEDDING_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer(ctx context.Context) error {
	log.Println("Starting Observa API server...")
	log.Printf("  HTTP: http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  LLM:  %s", cfg.LLM.URL)
	if cfg.IsEmbeddingConfigured() {
		log.Printf("  Embedding: %s", cfg.Embedding.URL)
	}
	log.Println()

	// Initialize OpenTelemetry tracing
	shutdown, err := tracing.InitTracer("observa-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	pool, err := initDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("Database connection established")

	// Initialize ID generator and transaction manager
	idGen := id.New()
	txManager := postgres.NewTransactionManager(pool)

	// Initialize repositories
	promptRepo := postgres.NewPromptVersionRepository(pool)
	datasetRepo := postgres.NewDatasetRepository(pool)
	itemRepo := postgres.NewDatasetItemRepository(pool)
	runRepo := postgres.NewDatasetRunRepository(pool)
	runItemRepo := postgres.NewDatasetRunItemRepository(pool, idGen)
	scoreRepo := postgres.NewScoreRepository(pool)
	traceRepo := postgres.NewTraceRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	// Initialize Embedding client (optional)
	var embeddingClient *embedding.Client
	var embeddingService ports.EmbeddingService
	if cfg.IsEmbeddingConfigured() {
		embeddingClient = embedding.NewClient(
			cfg.Embedding.URL,
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
		)
		embeddingService = embeddingClient
		log.Println("Embedding client initialized")
	} else {
		log.Println("Embedding service not configured, similarity search disabled")
	}

	// Agent invoker and LLM judge share the configured LLM client
	invoker := llm.NewAgentInvoker(llmClient, cfg.LLM.InputTokenCost, cfg.LLM.OutputTokenCost)
	judge := llm.NewJudgeClient(llmClient)
	evaluation.Register("llm_judge", evaluation.NewLLMJudgeFactory(judge))

	evaluationRunner := evaluation.NewRunner(runItemRepo, scoreRepo, idGen)

	// Initialize services
	promptStore := services.NewPromptStore(promptRepo, txManager, idGen)
	if cfg.Prompts.CacheTTLSeconds > 0 {
		promptStore.SetCacheTTL(time.Duration(cfg.Prompts.CacheTTLSeconds) * time.Second)
	}

	datasetService := services.NewDatasetService(datasetRepo, itemRepo, idGen, embeddingService)

	sseBroadcaster := handlers.NewSSEBroadcaster()

	orchestrator := services.NewRunOrchestrator(
		datasetRepo,
		itemRepo,
		runRepo,
		runItemRepo,
		traceRepo,
		txManager,
		idGen,
		invoker,
		evaluationRunner,
		sseBroadcaster,
	)

	server := httpadapter.NewServer(
		cfg,
		pool,
		llmClient,
		embeddingClient,
		promptStore,
		datasetService,
		orchestrator,
		scoreRepo,
		traceRepo,
		sessionRepo,
		idGen,
		sseBroadcaster,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Println("Server stopped")
	}

	return nil
}
