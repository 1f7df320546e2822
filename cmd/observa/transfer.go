package main

import (
	"fmt"
	"os"

	"github.com/observahq/observa/internal/adapters/id"
	"github.com/observahq/observa/internal/adapters/postgres"
	"github.com/observahq/observa/internal/transfer"
	"github.com/spf13/cobra"
)

// exportCmd writes a dataset archive to a file
func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <dataset-name>",
		Short: "Export a dataset and its items to a msgpack archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if output == "" {
				output = args[0] + ".observa"
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			t := transfer.New(
				postgres.NewDatasetRepository(pool),
				postgres.NewDatasetItemRepository(pool),
				postgres.NewTransactionManager(pool),
				id.New(),
			)
			if err := t.Export(ctx, args[0], f); err != nil {
				return err
			}

			fmt.Printf("Exported dataset %s to %s\n", args[0], output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to <dataset-name>.observa)")
	return cmd
}

// importCmd reads a dataset archive from a file
func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive-file>",
		Short: "Import a dataset archive produced by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			t := transfer.New(
				postgres.NewDatasetRepository(pool),
				postgres.NewDatasetItemRepository(pool),
				postgres.NewTransactionManager(pool),
				id.New(),
			)
			dataset, err := t.Import(ctx, f)
			if err != nil {
				return err
			}

			fmt.Printf("Imported dataset %s (%s)\n", dataset.Name, dataset.ID)
			return nil
		},
	}
}
