package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sftp-data-ingestion/cmd/pipeline/config"
	"sftp-data-ingestion/internal/fetch"
	"sftp-data-ingestion/internal/filestate"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download new extracts from the SFTP drop",
	Long: `Fetch lists the remote drop directory and downloads every CSV file not
yet present in the local new/ area. Downloads are verified against the
remote size and renamed into place atomically, so a rerun after an
interruption picks up exactly where it stopped.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSFTP(); err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	state, err := filestate.New(cfg.DataDir)
	if err != nil {
		return err
	}

	source, err := fetch.DialSFTP(&cfg.SFTP)
	if err != nil {
		return err
	}
	defer source.Close()

	result, err := fetch.NewDownloader(source, state.NewDir(), log).
		Run(cmd.Context(), cfg.RemoteDir)
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d of %d listed files (%d skipped, %d failed) in %s\n",
		result.Downloaded, result.Listed, result.Skipped, result.Failed,
		result.Elapsed.Round(time.Millisecond))
	return nil
}
