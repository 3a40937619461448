package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"zombieRushServer/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres connects a pool to databaseURL and creates the journal schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	log.Println("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = config.MaxOpenConns
	poolConfig.MinConns = config.MinOpenConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return pool, nil
}

// InitSchema creates the journal tables if they don't exist.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("📋 Initializing database schema...")

	settlementsSchema := `
	CREATE TABLE IF NOT EXISTS lane_settlements (
		id BIGSERIAL PRIMARY KEY,
		round_id TEXT NOT NULL,
		lane SMALLINT NOT NULL,
		zombie_type TEXT NOT NULL,
		result TEXT NOT NULL,
		bet DOUBLE PRECISION NOT NULL,
		multiplier DOUBLE PRECISION NOT NULL,
		payout DOUBLE PRECISION NOT NULL,
		balance DOUBLE PRECISION NOT NULL,
		settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_lane_settlements_settled_at ON lane_settlements(settled_at DESC);
	CREATE INDEX IF NOT EXISTS idx_lane_settlements_round ON lane_settlements(round_id);
	`
	if _, err := pool.Exec(ctx, settlementsSchema); err != nil {
		return fmt.Errorf("failed to create lane_settlements table: %w", err)
	}

	totalsSchema := `
	CREATE TABLE IF NOT EXISTS zombie_type_totals (
		zombie_type TEXT PRIMARY KEY,
		settlements BIGINT NOT NULL DEFAULT 0,
		wagered DOUBLE PRECISION NOT NULL DEFAULT 0,
		returned DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`
	if _, err := pool.Exec(ctx, totalsSchema); err != nil {
		return fmt.Errorf("failed to create zombie_type_totals table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}
