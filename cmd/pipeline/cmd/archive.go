package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"sftp-data-ingestion/cmd/pipeline/config"
	"sftp-data-ingestion/internal/store"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move consumed staging rows into the history archive",
	Long: `Archive drains the staging relation into the history archive in ctid
batches, each batch in its own transaction under a non-blocking advisory
lock. If another archiver already holds the lock the command reports it
and exits cleanly.`,
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "create missing schemas and tables before archiving")
}

func runArchive(cmd *cobra.Command, args []string) error {
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

	result, err := store.NewArchiver(pool, log, cfg.Archive).Run(ctx)
	if errors.Is(err, store.ErrArchiverBusy) {
		fmt.Println("Another archiver is running; nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Archived %d rows in %d batches (batch_id %s)\n",
		result.Inserted, result.Batches, result.BatchID)
	return nil
}
