package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sftp-data-ingestion/cmd/pipeline/config"
	"sftp-data-ingestion/internal/filestate"
	"sftp-data-ingestion/internal/pipeline"
	"sftp-data-ingestion/internal/store"
)

var ensureSchema bool

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Stage pending extract files into PostgreSQL",
	Long: `Load walks the new/ area, parses each pending file (detecting encoding
and delimiter), maps its header against the column dictionary and bulk
loads recognized files into the staging relation. Every file ends up in
processed/ or failed/; a bad file never stops the run.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "create missing schemas and tables before loading")
}

func runLoad(cmd *cobra.Command, args []string) error {
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

	state, err := filestate.New(cfg.DataDir)
	if err != nil {
		return err
	}

	loader := pipeline.NewLoader(state, store.NewStagingLoader(pool, log), log)
	result, err := loader.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Staged %d rows from %d files (%d failed)\n",
		result.TotalRows(), result.Processed(), result.Failed())
	return nil
}
