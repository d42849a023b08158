package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nettrail/ipstory/common/config"
	"github.com/nettrail/ipstory/common/logger"
)

const (
	connectTimeout = 5 * time.Second
	healthTimeout  = 3 * time.Second
)

// DB wraps a pgx connection pool over the story tables
type DB struct {
	*pgxpool.Pool
	log *logger.Logger
}

// New opens a connection pool against the configured database and
// verifies it is reachable before handing it out
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := poolConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("story database connected",
		"host", cfg.Database.Host,
		"db", cfg.Database.Database,
		"max_conns", cfg.Database.MaxConns,
	)

	return &DB{Pool: pool, log: log}, nil
}

// poolConfigFrom translates service settings into pgx pool settings
func poolConfigFrom(cfg *config.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime
	return poolConfig, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	db.log.Info("closing database connection pool")
	db.Pool.Close()
}

// Health pings the database with a short deadline
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
