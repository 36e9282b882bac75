// Package db provides the optional Postgres-backed delivery log for the
// email service, including schema migrations.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Koded0214h/MicroServices/config"
	"github.com/Koded0214h/MicroServices/logger"
)

// Database wraps a pgx connection pool.
type Database struct {
	Pool *pgxpool.Pool
}

// ConnString builds the Postgres connection URL for the configured database.
func ConnString(cfg config.DatabaseConfig) string {
	sslMode := "disable"
	if cfg.TLSMode {
		sslMode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.GetPort(), cfg.Name, sslMode)
}

// NewDatabase connects a pool to the configured Postgres database and
// verifies the connection with a ping.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.GetMaxConns())

	logger.Info("connecting to database", "host", cfg.Host, "port", cfg.GetPort(), "name", cfg.Name, "max_conns", poolConfig.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{Pool: pool}, nil
}

// Close releases the connection pool.
func (d *Database) Close() {
	d.Pool.Close()
}
