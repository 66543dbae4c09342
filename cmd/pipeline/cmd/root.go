package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sftp-data-ingestion/cmd/pipeline/config"
	"sftp-data-ingestion/pkg/logger"
)

var (
	envFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Delivery-tracking extract pipeline",
	Long: `Pipeline ingests delivery-tracking CSV extracts from an SFTP drop into
PostgreSQL. It downloads the extracts, stages them tolerantly, archives
consumed staging rows in batches, and merges one record per invoice key
into the fact store.

Examples:
  pipeline fetch
  pipeline load --ensure-schema
  pipeline run
  pipeline run --schedule "*/15 * * * *"`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "environment file (optional, .env by default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig wires environment variables into viper. The PIPELINE_ prefix
// maps onto dotted config keys, so PIPELINE_SFTP_HOST becomes sftp.host.
func initConfig() {
	viper.SetEnvPrefix("PIPELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setupLogger builds the process logger from the configured level and
// installs it as the global logger.
func setupLogger(cfg *config.Settings) (logger.Logger, error) {
	logCfg := cfg.LoggerConfig()
	if verbose {
		logCfg.Level = logger.DebugLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}
	logger.SetGlobalLogger(log)
	return log, nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
