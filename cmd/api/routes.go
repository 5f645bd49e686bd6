package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/shramsetu/backend/internal/auth"
	"github.com/shramsetu/backend/internal/config"
	"github.com/shramsetu/backend/internal/dashboard"
	"github.com/shramsetu/backend/internal/handlers"
	"github.com/shramsetu/backend/internal/jobs"
	"github.com/shramsetu/backend/internal/ledger"
	"github.com/shramsetu/backend/internal/metrics"
	"github.com/shramsetu/backend/internal/notify"
	"github.com/shramsetu/backend/internal/repository"
	"github.com/shramsetu/backend/internal/router"
	"github.com/shramsetu/backend/internal/services"
	"github.com/shramsetu/backend/internal/session"
	"github.com/shramsetu/backend/internal/workers"
)

// buildHandler wires repositories, services and handlers into the root HTTP handler:
// /api/v1 behind metrics and CORS, plus /metrics and /healthz.
func buildHandler(
	cfg *config.Config,
	pool *pgxpool.Pool,
	accountRepo *repository.AccountRepo,
	sessions *session.Store,
	insert notify.InsertFunc,
	logger *slog.Logger,
) (http.Handler, error) {
	appRepo := repository.NewApplicationRepo(pool)
	jobsRepo := jobs.NewRepository(pool)
	workersRepo := workers.NewRepository(pool)

	dispatcher := services.NewDispatcher(insert, logger)

	finder := services.NewFinder(jobsRepo, workersRepo, dispatcher, logger)
	finder.MinScore = cfg.Match.MinScore
	finder.NotifyScore = cfg.Match.NotifyScore

	ledgerSvc := ledger.NewService(ledger.NewRepository(pool))
	settlement := services.NewSettlement(appRepo, jobsRepo, ledgerSvc, cfg.DefaultPaymentAmount)
	lifecycle := services.NewLifecycle(appRepo, appRepo, jobsRepo, workersRepo, settlement, dispatcher, logger)

	validator, err := services.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("schema validator: %w", err)
	}

	authSvc := auth.NewService(auth.NewRepository(pool), sessions, cfg.JWTSecret, cfg.SessionTTL)

	api := router.New(router.Deps{
		Auth:         auth.NewHandler(authSvc, logger),
		Workers:      workers.NewHandler(workers.NewService(workersRepo, accountRepo, finder, ledgerSvc), cfg.Match.MinScore, logger),
		Jobs:         jobs.NewHandler(jobs.NewService(jobsRepo, finder, logger), cfg.Match.MinScore, logger),
		Applications: &handlers.ApplicationHandler{Lifecycle: lifecycle, Logger: logger},
		Dashboard:    dashboard.NewHandler(accountRepo, workersRepo, appRepo, logger),
		Tokens:       authSvc,
		Validator:    validator,
	})

	mw := metrics.NewMiddleware(prometheus.DefaultRegisterer, "shramsetu-api")

	mux := http.NewServeMux()
	mux.Handle("/api/", mw.Handler(api))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux), nil
}
