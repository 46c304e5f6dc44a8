package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each backing-service probe so one stuck
// dependency cannot hang the health endpoint.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Config entry lifecycle
			r.Route("/entries", func(r chi.Router) {
				r.Get("/", s.handleListEntries)
				r.Post("/", s.handleAddEntry)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEntry)
					r.Delete("/", s.handleRemoveEntry)
					r.Post("/reload", s.handleReloadEntry)
					r.Post("/reauth", s.handleReauthEntry)
					r.Post("/refresh", s.handleRefreshEntry)
					r.Put("/area", s.handleAssignEntryArea)
				})
			})

			// Area registry
			r.Route("/areas", func(r chi.Router) {
				r.Get("/", s.handleListAreas)
				r.Post("/", s.handleCreateArea)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetArea)
					r.Put("/", s.handleUpdateArea)
					r.Delete("/", s.handleDeleteArea)
				})
			})

			// Event trail
			r.Get("/logbook", s.handleLogbook)

			// Entities
			r.Route("/entities", func(r chi.Router) {
				r.Get("/", s.handleListEntities)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEntity)
					r.Put("/state", s.handleSetEntityState)
					r.Get("/history", s.handleEntityHistory)
				})
			})

			// WebSocket (token validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth reports the server status plus each configured
// backing-service probe. Any failing probe degrades the overall status
// and flips the response to 503 so load balancers and monitors notice.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	services := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			services[name] = err.Error()
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		services[name] = "ok"
	}

	body := map[string]any{
		"status":  status,
		"version": s.version,
		"loaded":  s.manager.LoadedCount(),
	}
	if len(services) > 0 {
		body["services"] = services
	}
	writeJSON(w, httpStatus, body)
}
