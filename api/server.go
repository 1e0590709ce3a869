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
  4. CORS:       Cross-origin requests for the planning UI

ROUTE GROUPS:
  /api/patterns/*        Rotation pattern catalog
  /api/crews/*           Crew shift time windows
  /api/periods/*         Schedule periods, slots, lifecycle
  /api/shift-records/*   Actual field shifts
  /api/reconciliation/*  Passes, findings, run audit trail
  /api/scenarios/*       Demo scenarios

SECURITY NOTE:
  No authentication middleware. The X-Actor header is trusted as-is; put the
  service behind a gateway that sets it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Pattern catalog
		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", h.ListPatterns)
			r.Post("/", h.CreatePattern)
			r.Get("/{id}", h.GetPattern)
		})

		// Crew time windows
		r.Route("/crews/{crewID}/time-windows", func(r chi.Router) {
			r.Get("/", h.ListTimeWindows)
			r.Post("/", h.CreateTimeWindow)
		})

		// Schedule periods
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Post("/", h.CreatePeriod)
			r.Get("/{id}", h.GetPeriod)
			r.Get("/{id}/slots", h.GetPeriodSlots)
			r.Post("/{id}/slots", h.EditSlot)
			r.Post("/{id}/generate", h.GenerateSlots)
			r.Post("/{id}/submit", h.SubmitPeriod)
			r.Post("/{id}/send-back", h.SendBackPeriod)
			r.Post("/{id}/publish", h.PublishPeriod)
			r.Post("/{id}/archive", h.ArchivePeriod)
			r.Post("/{id}/rebalance", h.RebalancePeriod)
		})

		// Actual shift records
		r.Route("/shift-records", func(r chi.Router) {
			r.Get("/", h.ListShiftRecords)
			r.Post("/", h.CreateShiftRecord)
		})

		// Reconciliation
		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/run", h.TriggerReconcile)
			r.Post("/run-forced", h.TriggerForcedReconcile)
			r.Get("/findings", h.ListFindings)
			r.Post("/findings/{id}/review", h.ReviewAbsence)
			r.Get("/runs", h.ListReconciliationRuns)
		})

		// Demo scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
