/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/services/*        Service catalog
  /api/rules/*           Recurrence rules
  /api/bookings/*        Bookings
  /api/blocks/*          Capacity blocks and holds
  /api/admin/*           Admin operations
  /api/reconciliation/*  Billing reconciliation
  /api/billing/*         Subscription events
  /health                Liveness probe
  /metrics               Prometheus metrics

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Service catalog
		r.Route("/services", func(r chi.Router) {
			r.Post("/", h.SaveService)
			r.Get("/{id}", h.GetService)
		})

		// Recurrence rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.SaveRule)
			r.Get("/{id}", h.GetRule)
			r.Post("/{id}/deactivate", h.DeactivateRule)
		})

		// Bookings
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/cancel", h.CancelBooking)
		})

		// Capacity blocks and holds
		r.Route("/blocks", func(r chi.Router) {
			r.Post("/", h.SaveBlock)
			r.Get("/{id}/availability", h.GetAvailability)
			r.Post("/{id}/holds", h.CreateHold)
		})
		r.Delete("/holds/{id}", h.ReleaseHold)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/materialize", h.TriggerMaterialization)
		})

		// Reconciliation routes
		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/validate", h.ValidateRecord)
			r.Get("/diffs", h.ListDiffs)
			r.Post("/diffs/{id}/apply", h.ApplyDiff)
			r.Post("/diffs/{id}/dismiss", h.DismissDiff)
			r.Get("/runs", h.ListReconciliationRuns)
		})

		// Billing subscription events
		r.Route("/billing", func(r chi.Router) {
			r.Post("/subscriptions", h.ApplySubscription)
			r.Post("/subscriptions/{id}/deactivate", h.DeactivateSubscription)
		})
	})

	return r
}
