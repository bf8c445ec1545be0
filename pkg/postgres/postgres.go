package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgreDB struct {
	Pool     *pgxpool.Pool
	DBConfig *pgxpool.Config
}

type Config interface {
	GetDSN() string
	PoolSettings() PoolSettings
}

// PoolSettings tunes the pgx pool. Zero values keep the pgxpool defaults.
type PoolSettings struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func New(ctx context.Context, config Config) (*PostgreDB, error) {
	dbConfig, err := buildConfig(config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	// Ping the database
	if err = pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgreDB{
		Pool:     pool,
		DBConfig: dbConfig,
	}, nil
}

// buildConfig parses the DSN and lays the configured pool settings on top.
func buildConfig(config Config) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(config.GetDSN())
	if err != nil {
		return nil, err
	}

	s := config.PoolSettings()
	if s.MaxConns > 0 {
		dbConfig.MaxConns = s.MaxConns
	}
	if s.MinConns > 0 {
		dbConfig.MinConns = s.MinConns
	}
	if s.MaxConnLifetime > 0 {
		dbConfig.MaxConnLifetime = s.MaxConnLifetime
	}
	if s.MaxConnIdleTime > 0 {
		dbConfig.MaxConnIdleTime = s.MaxConnIdleTime
	}

	return dbConfig, nil
}
