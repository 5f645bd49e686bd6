package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/shramsetu/backend/internal/config"
	"github.com/shramsetu/backend/internal/migrations"
	"github.com/shramsetu/backend/internal/notify"
	"github.com/shramsetu/backend/internal/repository"
	"github.com/shramsetu/backend/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if cfg.RunMigrations {
		if err := migrations.Up(ctx, pool, logger); err != nil {
			slog.Error("Migrations failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Migrations applied")
	}

	// Sessions
	rdb := session.NewClient(cfg.Redis)
	defer rdb.Close()
	sessions := session.NewStore(rdb)
	if err := sessions.Ping(ctx); err != nil {
		slog.Error("Cannot reach Redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}

	accountRepo := repository.NewAccountRepo(pool)
	sender, err := newSender(ctx, cfg, accountRepo, logger)
	if err != nil {
		slog.Error("Failed to create notification sender", "sender", cfg.Notify.Sender, "error", err)
		os.Exit(1)
	}

	// Notification insert func is set after the River client is created (breaks init cycle)
	var insertMu sync.Mutex
	var insertFn notify.InsertFunc
	insertNotification := func(ctx context.Context, args notify.DeliverNotificationArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("notification queue not ready")
		}
		return fn(ctx, args)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewDeliverNotificationWorker(sender, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.River.MaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, args notify.DeliverNotificationArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}
	insertMu.Unlock()

	handler, err := buildHandler(cfg, pool, accountRepo, sessions, insertNotification, logger)
	if err != nil {
		slog.Error("Failed to build HTTP handler", "error", err)
		os.Exit(1)
	}

	// Start River client (delivers notifications)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
		if err := riverClient.Stop(shutdownCtx); err != nil {
			slog.Error("River stop failed", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("HTTP server stopped")
}

func newSender(ctx context.Context, cfg *config.Config, contacts notify.ContactLookup, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.Notify.Sender {
	case config.SenderWebhook:
		return notify.NewWebhookSender(cfg.Notify.WebhookURL), nil
	case config.SenderSNS:
		client, err := notify.NewSNSClient(ctx, cfg.Notify.AWSRegion)
		if err != nil {
			return nil, err
		}
		return notify.NewSNSSender(client, contacts), nil
	default:
		return notify.LogSender{Logger: logger}, nil
	}
}
