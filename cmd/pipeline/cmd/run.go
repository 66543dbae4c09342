package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"sftp-data-ingestion/cmd/pipeline/config"
	"sftp-data-ingestion/internal/fetch"
	"sftp-data-ingestion/internal/filestate"
	"sftp-data-ingestion/internal/pipeline"
	"sftp-data-ingestion/internal/store"
	"sftp-data-ingestion/pkg/logger"
)

var (
	schedule  string
	skipFetch bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch, load, merge, archive",
	Long: `Run executes every stage in sequence. With --schedule the process stays
alive and repeats the sequence on the given cron expression until
interrupted; without it the sequence runs once and exits.

Examples:
  pipeline run
  pipeline run --skip-fetch
  pipeline run --schedule "*/15 * * * *"`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression to repeat the pipeline on")
	runCmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "skip the SFTP fetch stage")
	runCmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "create missing schemas and tables on start")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	if !skipFetch {
		if err := cfg.ValidateSFTP(); err != nil {
			return err
		}
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if schedule == "" {
		return runSequence(ctx, cfg, pool, log)
	}

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if err := runSequence(ctx, cfg, pool, log); err != nil {
			log.WithError(err).Error("scheduled pipeline run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	log.WithField("schedule", schedule).Info("pipeline scheduler started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("pipeline scheduler stopped")
	return nil
}

// runSequence executes one full pass. The SFTP connection is opened per
// pass so a scheduled run does not hold an idle session between ticks.
func runSequence(ctx context.Context, cfg *config.Settings, pool *pgxpool.Pool, log logger.Logger) error {
	state, err := filestate.New(cfg.DataDir)
	if err != nil {
		return err
	}

	runner := &pipeline.Runner{
		RemoteDir: cfg.RemoteDir,
		Log:       log,
	}

	if !skipFetch {
		source, err := fetch.DialSFTP(&cfg.SFTP)
		if err != nil {
			return err
		}
		defer source.Close()
		runner.Fetcher = fetch.NewDownloader(source, state.NewDir(), log)
	}

	merger, err := store.NewMerger(pool, log)
	if err != nil {
		return err
	}
	runner.Loader = pipeline.NewLoader(state, store.NewStagingLoader(pool, log), log)
	runner.Merger = merger
	runner.Archiver = store.NewArchiver(pool, log, cfg.Archive)

	return runner.RunAll(ctx)
}
