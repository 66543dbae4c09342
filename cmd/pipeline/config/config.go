// Package config assembles the runtime settings of the pipeline from the
// environment (optionally seeded by a .env file) and validates them per
// stage before anything connects anywhere.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sftp-data-ingestion/internal/fetch"
	"sftp-data-ingestion/internal/store"
	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

// Settings is the full runtime configuration.
type Settings struct {
	// DataDir is the root of the new/processed/failed areas.
	DataDir string
	// RemoteDir is the SFTP directory the extracts are dropped into.
	RemoteDir string

	SFTP     fetch.SFTPConfig
	Database store.Config
	Archive  store.ArchiveConfig

	LogLevel  string
	LogFormat string
	LogFile   string
}

func setDefaults() {
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("remote_dir", "/upload")

	viper.SetDefault("sftp.port", 22)
	viper.SetDefault("sftp.timeout_seconds", 30)

	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "prefer")
	viper.SetDefault("db.max_conns", 4)

	viper.SetDefault("archive.batch_size", 50000)
	viper.SetDefault("archive.lock_timeout_ms", 3000)
	viper.SetDefault("archive.statement_timeout_ms", 900000)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// Load reads the environment into a Settings. A named env file must
// exist; the default .env is optional.
func Load(envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, pipelineerrors.ConfigurationError(
				pipelineerrors.CodeInvalidConfig, "env-file", err)
		}
	} else {
		// A missing default .env just means everything comes from the
		// process environment.
		godotenv.Load()
	}

	setDefaults()

	return &Settings{
		DataDir:   viper.GetString("data_dir"),
		RemoteDir: viper.GetString("remote_dir"),
		SFTP: fetch.SFTPConfig{
			Host:           viper.GetString("sftp.host"),
			Port:           viper.GetInt("sftp.port"),
			User:           viper.GetString("sftp.user"),
			Password:       viper.GetString("sftp.password"),
			KnownHostsFile: viper.GetString("sftp.known_hosts"),
			Timeout:        time.Duration(viper.GetInt("sftp.timeout_seconds")) * time.Second,
		},
		Database: store.Config{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			Database: viper.GetString("db.name"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			SSLMode:  viper.GetString("db.sslmode"),
			MaxConns: viper.GetInt32("db.max_conns"),
		},
		Archive: store.ArchiveConfig{
			BatchSize:        viper.GetInt("archive.batch_size"),
			LockTimeout:      time.Duration(viper.GetInt("archive.lock_timeout_ms")) * time.Millisecond,
			StatementTimeout: time.Duration(viper.GetInt("archive.statement_timeout_ms")) * time.Millisecond,
		},
		LogLevel:  viper.GetString("log.level"),
		LogFormat: viper.GetString("log.format"),
		LogFile:   viper.GetString("log.file"),
	}, nil
}

// ValidateSFTP checks the settings the fetch stage cannot run without.
func (s *Settings) ValidateSFTP() error {
	for key, value := range map[string]string{
		"sftp.host": s.SFTP.Host,
		"sftp.user": s.SFTP.User,
	} {
		if value == "" {
			return pipelineerrors.ConfigurationError(
				pipelineerrors.CodeMissingConfig, key, nil)
		}
	}
	return nil
}

// ValidateDatabase checks the settings every database stage needs.
func (s *Settings) ValidateDatabase() error {
	for key, value := range map[string]string{
		"db.host": s.Database.Host,
		"db.name": s.Database.Database,
		"db.user": s.Database.User,
	} {
		if value == "" {
			return pipelineerrors.ConfigurationError(
				pipelineerrors.CodeMissingConfig, key, nil)
		}
	}
	return nil
}

// LoggerConfig converts the logging settings into a pkg/logger config.
func (s *Settings) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.Level(s.LogLevel),
		Format: logger.Format(s.LogFormat),
		File:   s.LogFile,
	}
}
