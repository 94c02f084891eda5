// Package main runs the token board: REST API, WebSocket vote updates and
// optional Kafka fan-out over the configured store.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-board/internal/board"
	"token-board/internal/config"
	"token-board/internal/httpapi"
	"token-board/internal/notify"
	"token-board/internal/storage/backend"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Printf("Warning: %v", err)
	}

	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.AdminPassword == "" {
		logger.Println("ADMIN_PASSWORD is not set; admin routes are locked")
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create stores
	stores, cleanup, err := backend.Open(ctx, cfg, log.New(os.Stdout, "[store] ", log.LstdFlags|log.Lshortfile))
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	logger.Printf("Using %s store", cfg.Store)

	// Notification fan-out
	publisher := notify.NewPublisher()

	hub := notify.NewHub(nil, log.New(os.Stdout, "[hub] ", log.LstdFlags|log.Lshortfile))
	defer hub.Close()
	publisher.Subscribe(hub)

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notify.NewKafkaObserver(notify.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, log.New(os.Stdout, "[kafka] ", log.LstdFlags|log.Lshortfile))
		if err != nil {
			logger.Fatalf("Failed to create Kafka observer: %v", err)
		}
		unsubscribe := publisher.Subscribe(kafka)
		defer func() {
			unsubscribe()
			if err := kafka.Close(); err != nil {
				logger.Printf("Kafka close error: %v", err)
			}
		}()
		logger.Printf("Publishing vote updates to Kafka topic %s", cfg.KafkaTopic)
	}

	svc := board.New(board.Options{
		TokenStore:     stores.Tokens,
		VoteEventStore: stores.Events,
		Publisher:      publisher,
		Logger:         log.New(os.Stdout, "[board] ", log.LstdFlags|log.Lshortfile),
	})

	var throttle *httpapi.ThrottleConfig
	if cfg.VoteRPS > 0 {
		tc := httpapi.DefaultThrottleConfig()
		tc.RPS = cfg.VoteRPS
		tc.Burst = cfg.VoteBurst
		throttle = &tc
	}

	router := httpapi.NewRouter(httpapi.Options{
		Board:         svc,
		WebSocket:     hub,
		AdminPassword: cfg.AdminPassword,
		TrustProxy:    cfg.TrustProxy,
		Throttle:      throttle,
		StaticDir:     cfg.StaticDir,
		Logger:        log.New(os.Stdout, "[http] ", log.LstdFlags|log.Lshortfile),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Println("Received shutdown signal, initiating graceful shutdown...")
	case err := <-errCh:
		if err != nil {
			logger.Printf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// WebSocket connections are hijacked and not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
	}

	logger.Println("Shutdown complete")
}
