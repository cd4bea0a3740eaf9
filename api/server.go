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
  /api/plans/*        Plan lifecycle, priorities, conversion, hierarchy
  /api/priorities/*   Strategy drafting and listing
  /api/strategies/*   Review transitions and KPI derivation
  /api/kpis/*         Observations and forecasts
  /api/scenarios/*    Demo scenarios

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Plan routes
		r.Route("/plans", func(r chi.Router) {
			r.Post("/", h.CreatePlan)
			r.Get("/", h.ListPlans)
			r.Get("/{id}", h.GetPlan)
			r.Post("/{id}/activate", h.ActivatePlan)
			r.Put("/{id}/priorities", h.SetPriorities)
			r.Get("/{id}/summary", h.GetPlanSummary)
			r.Post("/{id}/convert", h.ConvertStrategies)
			r.Get("/{id}/hierarchy", h.GetPlanHierarchy)
		})

		// Priority routes
		r.Route("/priorities", func(r chi.Router) {
			r.Post("/{id}/strategies/generate", h.GenerateStrategies)
			r.Get("/{id}/strategies", h.ListStrategies)
		})

		// Strategy routes
		r.Route("/strategies", func(r chi.Router) {
			r.Get("/{id}", h.GetStrategy)
			r.Post("/{id}/status", h.SetStrategyStatus)
			r.Post("/{id}/kpis", h.CreateKPIs)
		})

		// KPI routes
		r.Route("/kpis", func(r chi.Router) {
			r.Get("/{id}", h.GetKPI)
			r.Post("/{id}/history", h.AppendHistory)
			r.Get("/{id}/history", h.ListHistory)
			r.Get("/{id}/forecast", h.Forecast)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
