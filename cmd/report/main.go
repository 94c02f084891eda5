package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"token-board/internal/board"
	"token-board/internal/config"
	"token-board/internal/ranking"
	"token-board/internal/reporting"
	"token-board/internal/storage/backend"
)

func main() {
	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Parse flags
	store := flag.String("store", envOr("STORE", config.StoreFile), "Storage backend: file or postgres")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "."), "Directory holding tokens.json and votes.json")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the vote ledger")
	sortKey := flag.String("sort", string(ranking.SortVotes), "Sort key: votes, votes24h, ranking, createdAt or empty for insertion order")
	limit := flag.Int("limit", 0, "Maximum number of rows (0 for all)")
	outputDir := flag.String("output-dir", "", "Write LEADERBOARD.md and LEADERBOARD.csv here instead of printing Markdown")
	flag.Parse()

	key, err := ranking.ParseSortKey(*sortKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Validate flags
	cfg := &config.Config{
		Store:         *store,
		DataDir:       *dataDir,
		PostgresDSN:   *postgresDSN,
		ClickHouseDSN: *clickhouseDSN,
	}
	if cfg.Store == config.StoreMemory {
		fmt.Fprintln(os.Stderr, "Error: the memory store holds no data outside a running server")
		os.Exit(1)
	}
	if cfg.Store == config.StorePostgres && cfg.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required for the postgres store")
		os.Exit(1)
	}

	ctx := context.Background()

	stores, cleanup, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	svc := board.New(board.Options{
		TokenStore:     stores.Tokens,
		VoteEventStore: stores.Events,
	})

	r, err := reporting.NewGenerator(svc).Generate(ctx, key, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(r))
		return
	}

	if err := writeFiles(*outputDir, r); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	fmt.Println("Leaderboard report generated successfully:")
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "LEADERBOARD.md"))
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "LEADERBOARD.csv"))
}

func writeFiles(dir string, r *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "LEADERBOARD.md"), []byte(reporting.RenderMarkdown(r)), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "LEADERBOARD.csv"), []byte(reporting.RenderCSV(r.Rows)), 0o644)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
