// Package main follows a running board's vote updates over WebSocket and
// prints one line per update.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-board/internal/config"
	"token-board/internal/domain"
	"token-board/internal/notify"
)

func main() {
	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	defaultURL := os.Getenv("WATCH_URL")
	if defaultURL == "" {
		defaultURL = "ws://localhost:3000/ws"
	}
	url := flag.String("url", defaultURL, "Board WebSocket endpoint")
	symbol := flag.String("symbol", "", "Only print updates for this symbol")
	maxDelay := flag.Duration("max-reconnect-delay", 30*time.Second, "Upper bound for reconnect backoff")
	flag.Parse()

	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := notify.DefaultWatcherConfig()
	cfg.MaxReconnectDelay = *maxDelay
	w := notify.NewWatcher(*url, &cfg, logger)

	logger.Printf("Watching %s", *url)
	err := w.Run(ctx, func(u domain.VoteUpdate) {
		if *symbol != "" && u.Symbol != *symbol {
			return
		}
		fmt.Printf("%s %s votes=%d\n", time.Now().UTC().Format(time.RFC3339), u.Symbol, u.Votes)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Watcher stopped: %v", err)
	}
	logger.Println("Stopped")
}
