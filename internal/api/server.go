package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/mikaelw/subtrack/internal/api/handler"
	mw "github.com/mikaelw/subtrack/internal/api/middleware"
	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/config"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/storage"
)

//go:embed docs/swagger.json
var swaggerJSON []byte

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
	store          *storage.DocumentStore
	cfg            *config.Config
	auditLogger    *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, temporalClient temporalclient.Client, pub events.Publisher, caches *cache.Cache, store *storage.DocumentStore, cfg *config.Config) *Server {
	services := core.NewServices(pool, temporalClient, pub, caches, cfg.JWTSecret, cfg.JWTIssuer)
	auditLogger := mw.NewAuditLogger(pool, logger)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		pool:           pool,
		temporalClient: temporalClient,
		store:          store,
		cfg:            cfg,
		auditLogger:    auditLogger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Close stops the async audit writer. Call after the HTTP server has drained.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// API documentation (no auth required)
	s.router.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerJSON)
	})
	s.router.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(scalarHTML))
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		auth := handler.NewAuth(s.services.Auth)
		dashboard := handler.NewDashboard(s.services.Dashboard, s.services.Auth, s.pool, s.auditLogger)

		// Login issues the session token, and the live feed authenticates
		// via query parameter inside the handler (the browser WebSocket API
		// cannot set headers). Neither goes through the auth middleware.
		r.Post("/auth/login", auth.Login)
		r.Get("/dashboard/live", dashboard.Live)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(s.pool, s.services.Auth))
			r.Use(s.auditLogger.Middleware)

			// Session
			r.Get("/me", auth.Me)
			r.Patch("/me", auth.UpdateMe)

			// Dashboard
			r.Get("/dashboard/stats", dashboard.Stats)
			r.Get("/dashboard/activity", dashboard.Activity)

			// Audit logs
			audit := handler.NewAudit(s.pool)
			r.Get("/audit-logs", audit.List)

			// Customers
			customer := handler.NewCustomer(s.services.Customer, s.services.Entitlement)
			r.Get("/customers", customer.List)
			r.Post("/customers", customer.Create)
			r.Get("/customers/{id}", customer.Get)
			r.Put("/customers/{id}", customer.Update)
			r.Delete("/customers/{id}", customer.Archive)
			r.Get("/customers/{id}/entitlements", customer.Entitlements)

			// Plans
			plan := handler.NewPlan(s.services.Plan)
			r.Get("/plans", plan.List)
			r.Post("/plans", plan.Create)
			r.Get("/plans/{id}", plan.Get)
			r.Put("/plans/{id}", plan.Update)
			r.Delete("/plans/{id}", plan.Retire)

			// Subscriptions
			subscription := handler.NewSubscription(s.services.Subscription, s.services.Customer, s.services.Plan)
			r.Get("/subscriptions", subscription.List)
			r.Get("/customers/{customerID}/subscriptions", subscription.ListByCustomer)
			r.Post("/customers/{customerID}/subscriptions", subscription.Create)
			r.Get("/subscriptions/{id}", subscription.Get)
			r.Put("/subscriptions/{id}", subscription.Update)
			r.Delete("/subscriptions/{id}", subscription.Cancel)
			r.Post("/subscriptions/{id}/pause", subscription.Pause)
			r.Post("/subscriptions/{id}/resume", subscription.Resume)
			r.Post("/subscriptions/{id}/renew", subscription.Renew)

			// Invoices
			invoice := handler.NewInvoice(s.services.Invoice, s.services.Customer)
			r.Get("/invoices", invoice.List)
			r.Get("/customers/{customerID}/invoices", invoice.ListByCustomer)
			r.Post("/customers/{customerID}/invoices", invoice.Create)
			r.Get("/invoices/{id}", invoice.Get)
			r.Put("/invoices/{id}", invoice.Update)
			r.Delete("/invoices/{id}", invoice.Delete)
			r.Post("/invoices/{id}/issue", invoice.Issue)
			r.Post("/invoices/{id}/pay", invoice.Pay)
			r.Post("/invoices/{id}/void", invoice.Void)

			// Invoice documents
			document := handler.NewDocument(s.services.Invoice, s.store, s.temporalClient)
			r.Put("/invoices/{id}/document", document.Upload)
			r.Get("/invoices/{id}/document", document.Download)
			r.Get("/invoices/{id}/document/preview", document.Preview)

			// Line items
			lineItem := handler.NewLineItem(s.services.LineItem, s.services.Invoice)
			r.Get("/invoices/{invoiceID}/line-items", lineItem.ListByInvoice)
			r.Post("/invoices/{invoiceID}/line-items", lineItem.Create)
			r.Get("/line-items/{id}", lineItem.Get)
			r.Put("/line-items/{id}", lineItem.Update)
			r.Delete("/line-items/{id}", lineItem.Delete)

			// Devices
			device := handler.NewDevice(s.services.Device)
			r.Get("/devices", device.List)
			r.Post("/devices", device.Create)
			r.Get("/devices/{id}", device.Get)
			r.Put("/devices/{id}", device.Update)
			r.Delete("/devices/{id}", device.Delete)

			// Assignments
			assignment := handler.NewAssignment(s.services)
			r.Get("/subscriptions/{subscriptionID}/assignments", assignment.ListBySubscription)
			r.Post("/subscriptions/{subscriptionID}/assignments", assignment.Create)
			r.Get("/devices/{deviceID}/assignments", assignment.ListByDevice)
			r.Get("/assignments/{id}", assignment.Get)
			r.Put("/assignments/{id}", assignment.Update)
			r.Delete("/assignments/{id}", assignment.Return)

			// Cross-resource search
			search := handler.NewSearch(s.services.Search)
			r.Get("/search", search.Search)

			// CSV exports
			export := handler.NewExport(s.services.Export)
			r.With(mw.RequireScope("exports", "read")).Get("/exports/{report}", export.Download)

			// Workflow completion, for clients that want to block on a 202
			workflow := handler.NewWorkflow(s.temporalClient)
			r.Get("/workflows/{workflowID}/await", workflow.Await)

			// API keys (admin only)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAdmin())

				apiKey := handler.NewAPIKey(s.services.APIKey)
				r.Get("/api-keys", apiKey.List)
				r.Post("/api-keys", apiKey.Create)
				r.Get("/api-keys/{id}", apiKey.Get)
				r.Put("/api-keys/{id}", apiKey.Update)
				r.Delete("/api-keys/{id}", apiKey.Revoke)
			})
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

const scalarHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Subtrack API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
  <script id="api-reference" data-url="/docs/openapi.json"></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
