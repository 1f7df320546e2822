package main

import (
	"fmt"
	"time"

	"github.com/observahq/observa/internal/adapters/id"
	"github.com/observahq/observa/internal/adapters/postgres"
	"github.com/observahq/observa/internal/application/services"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/evaluation"
	"github.com/observahq/observa/internal/llm"
	"github.com/spf13/cobra"
)

// runCmd executes a dataset run from the command line
func runCmd() *cobra.Command {
	var runName string

	cmd := &cobra.Command{
		Use:   "run <dataset-name>",
		Short: "Execute an evaluation run over a dataset",
		Long: `Create and execute an evaluation run over every active item of a
dataset. Each item is sent to the configured agent, traced, and scored
with the dataset's evaluators (exact_match when none are configured).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			idGen := id.New()
			txManager := postgres.NewTransactionManager(pool)
			datasetRepo := postgres.NewDatasetRepository(pool)
			itemRepo := postgres.NewDatasetItemRepository(pool)
			runRepo := postgres.NewDatasetRunRepository(pool)
			runItemRepo := postgres.NewDatasetRunItemRepository(pool, idGen)
			scoreRepo := postgres.NewScoreRepository(pool)
			traceRepo := postgres.NewTraceRepository(pool)

			invoker := llm.NewAgentInvoker(llmClient, cfg.LLM.InputTokenCost, cfg.LLM.OutputTokenCost)
			judge := llm.NewJudgeClient(llmClient)
			evaluation.Register("llm_judge", evaluation.NewLLMJudgeFactory(judge))
			evaluationRunner := evaluation.NewRunner(runItemRepo, scoreRepo, idGen)

			orchestrator := services.NewRunOrchestrator(
				datasetRepo, itemRepo, runRepo, runItemRepo, traceRepo,
				txManager, idGen, invoker, evaluationRunner, nil,
			)

			dataset, err := datasetRepo.GetByName(ctx, args[0])
			if err != nil {
				return err
			}

			if runName == "" {
				runName = fmt.Sprintf("cli-%s", time.Now().UTC().Format("20060102-150405"))
			}

			run, err := orchestrator.CreateRun(ctx, dataset.ID, runName, map[string]any{"source": "cli"})
			if err != nil {
				return err
			}
			fmt.Printf("Created run %s (%s) on dataset %s\n", run.Name, run.ID, dataset.Name)

			run, err = orchestrator.Execute(ctx, run.ID)
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Printf("Run %s finished: %s\n", run.Name, run.Status)
			fmt.Printf("  Items:     %d total, %d completed, %d failed\n", run.TotalItems, run.CompletedItems, run.FailedItems)
			fmt.Printf("  Cost:      $%.6f\n", run.TotalCost)
			fmt.Printf("  Tokens:    %d\n", run.TotalTokens)
			fmt.Printf("  Progress:  %.1f%%\n", run.ProgressPercentage())

			// Exact-output tally over items where both sides are comparable.
			if evals, err := runItemRepo.ListForEvaluation(ctx, run.ID); err == nil {
				matched, comparable := 0, 0
				for _, ev := range evals {
					if m := models.OutputMatches(ev.ExpectedOutput, ev.ActualOutput); m != nil {
						comparable++
						if *m {
							matched++
						}
					}
				}
				if comparable > 0 {
					fmt.Printf("  Matches:   %d/%d exact\n", matched, comparable)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runName, "name", "", "run name (defaults to a timestamped name)")
	return cmd
}
