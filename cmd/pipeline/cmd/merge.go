package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sftp-data-ingestion/cmd/pipeline/config"
	"sftp-data-ingestion/internal/store"
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge staged rows into the fact store",
	Long: `Merge reads the staged rows, coerces them into typed records, keeps one
winner per 44-digit invoice key (newest occurrence first) and upserts
the winners into the fact store. Tracking columns follow the newest
occurrence; order columns are filled once and kept. The whole pass runs
in a single transaction and is safe to repeat.`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "create missing schemas and tables before merging")
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := store.Connect(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if ensureSchema {
		if err := store.EnsureSchema(ctx, pool, log); err != nil {
			return err
		}
	}

	merger, err := store.NewMerger(pool, log)
	if err != nil {
		return err
	}
	result, err := merger.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Merged %d winners from %d staged rows (%d rows without a valid key)\n",
		result.Winners, result.StagingRows, result.DroppedKeys)
	return nil
}
