package router

import (
	"net/http"

	"github.com/shramsetu/backend/internal/auth"
	"github.com/shramsetu/backend/internal/dashboard"
	"github.com/shramsetu/backend/internal/handlers"
	"github.com/shramsetu/backend/internal/jobs"
	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/services"
	"github.com/shramsetu/backend/internal/workers"
)

const base = "/api/v1"

// Deps holds everything the API routes are built from.
type Deps struct {
	Auth         *auth.Handler
	Workers      *workers.Handler
	Jobs         *jobs.Handler
	Applications *handlers.ApplicationHandler
	Dashboard    *dashboard.Handler

	Tokens    middleware.TokenValidator
	Validator middleware.BodyValidator
}

// New returns an http.Handler that serves the API under /api/v1.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.Authenticate(d.Tokens)
	body := func(schema string) func(http.Handler) http.Handler {
		return middleware.ValidateBody(d.Validator, schema)
	}
	worker := middleware.RequireRole(models.RoleWorker)
	employer := middleware.RequireRole(models.RoleEmployer)

	handle := func(pattern string, h http.HandlerFunc, mw ...func(http.Handler) http.Handler) {
		var next http.Handler = h
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		mux.Handle(pattern, next)
	}
	route := func(method, path string) string { return method + " " + base + path }

	// Auth
	handle(route("POST", "/auth/register"), d.Auth.Register, body(services.SchemaRegister))
	handle(route("POST", "/auth/login"), d.Auth.Login, body(services.SchemaLogin))
	handle(route("POST", "/auth/logout"), d.Auth.Logout)

	// Account
	handle(route("GET", "/account/me"), d.Dashboard.GetMe, authed)
	handle(route("PATCH", "/account/settings"), d.Dashboard.UpdateSettings, authed)
	handle(route("GET", "/employers/me/dashboard"), d.Dashboard.EmployerDashboard, authed, employer)

	// Workers
	handle(route("POST", "/workers"), d.Workers.CreateProfile, authed, worker, body(services.SchemaCreateWorker))
	handle(route("GET", "/workers/{id}"), d.Workers.GetProfile, authed)
	handle(route("PATCH", "/workers/{id}"), d.Workers.UpdateProfile, authed, worker, body(services.SchemaUpdateWorker))
	handle(route("GET", "/workers/{id}/jobs"), d.Workers.MatchingJobs, authed, worker)
	handle(route("GET", "/workers/{id}/applications"), d.Applications.ListForWorker, authed, worker)
	handle(route("GET", "/workers/{id}/wallet"), d.Workers.Wallet, authed, worker)
	handle(route("POST", "/workers/{id}/withdrawals"), d.Workers.Withdraw, authed, worker, body(services.SchemaWithdrawal))

	// Jobs
	handle(route("POST", "/jobs"), d.Jobs.CreateJob, authed, employer, body(services.SchemaCreateJob))
	handle(route("GET", "/jobs"), d.Jobs.ListJobs, authed)
	handle(route("GET", "/jobs/{id}"), d.Jobs.GetJob, authed)
	handle(route("PATCH", "/jobs/{id}"), d.Jobs.UpdateJob, authed, employer, body(services.SchemaUpdateJob))
	handle(route("DELETE", "/jobs/{id}"), d.Jobs.DeleteJob, authed, employer)
	handle(route("GET", "/jobs/{id}/matching-workers"), d.Jobs.MatchingWorkers, authed, employer)
	handle(route("GET", "/jobs/{id}/applications"), d.Applications.ListForJob, authed, employer)

	// Applications
	handle(route("POST", "/job-applications"), d.Applications.Apply, authed, worker, body(services.SchemaCreateApplication))
	handle(route("GET", "/job-applications/{id}"), d.Applications.Get, authed)
	handle(route("DELETE", "/job-applications/{id}"), d.Applications.Cancel, authed, worker)
	handle(route("PATCH", "/job-applications/{id}/status"), d.Applications.UpdateStatus, authed, employer, body(services.SchemaUpdateApplicationStatus))
	handle(route("PATCH", "/job-applications/{id}/process-payment"), d.Applications.ProcessPayment, authed, employer, body(services.SchemaProcessPayment))

	return mux
}
