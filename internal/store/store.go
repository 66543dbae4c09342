// Package store is the PostgreSQL side of the pipeline: connection
// pooling, the staging bulk loader, the batch archiver and the fact
// upsert. All SQL lives here; the packages above it never see a
// connection.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	pipelineerrors "sftp-data-ingestion/pkg/errors"
)

// Config carries the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxConns int32
}

// DSN renders the config as a keyword/value connection string.
func (c *Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, port, c.Database, c.User, c.Password, sslMode)
}

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, pipelineerrors.ConfigurationError(
			pipelineerrors.CodeInvalidConfig, "database", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, pipelineerrors.TransportError(
			pipelineerrors.CodeConnectionFailed, cfg.Host, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, pipelineerrors.TransportError(
			pipelineerrors.CodeConnectionFailed, cfg.Host, err)
	}
	return pool, nil
}
