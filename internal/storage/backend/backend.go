// Package backend opens the token and vote event stores selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log"

	"token-board/internal/config"
	"token-board/internal/storage"
	chstore "token-board/internal/storage/clickhouse"
	"token-board/internal/storage/file"
	"token-board/internal/storage/memory"
	"token-board/internal/storage/migrations"
	pgstore "token-board/internal/storage/postgres"
)

// Stores holds the two stores the board needs.
type Stores struct {
	Tokens storage.TokenStore
	Events storage.VoteEventStore
}

// Open creates the stores for cfg.Store. The returned cleanup releases
// connections and is safe to call when Open fails.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, func(), error) {
	noop := func() {}

	switch cfg.Store {
	case config.StoreMemory:
		return &Stores{
			Tokens: memory.NewTokenStore(),
			Events: memory.NewVoteEventStore(),
		}, noop, nil

	case config.StoreFile:
		tokens, events, err := file.Open(cfg.DataDir, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
		}
		return &Stores{Tokens: tokens, Events: events}, noop, nil

	case config.StorePostgres:
		return openDatabases(ctx, cfg, logger)

	default:
		return nil, noop, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// openDatabases connects to PostgreSQL and, when configured, ClickHouse for the
// vote ledger. Both are migrated before use.
func openDatabases(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, func(), error) {
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect to postgres: %w", err)
	}

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, func() {}, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 && logger != nil {
		logger.Printf("Applied postgres migrations: %v", applied)
	}

	stores := &Stores{
		Tokens: pgstore.NewTokenStore(pool),
		Events: pgstore.NewVoteEventStore(pool),
	}

	if cfg.ClickHouseDSN == "" {
		return stores, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, func() {}, fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.Events = chstore.NewVoteEventStore(chConn)
	if logger != nil {
		logger.Println("Vote ledger backed by ClickHouse")
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
