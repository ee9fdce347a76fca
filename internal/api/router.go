package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lanebridge/authcore/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Operational surface (no auth required)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())
	r.Get("/.well-known/jwks.json", s.handleJWKS)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Session endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)

			// Refresh token required, checked against the store
			r.Group(func(r chi.Router) {
				r.Use(s.authenticateRefresh)
				r.Post("/refresh", s.handleRefresh)
			})

			// Access token required
			r.Group(func(r chi.Router) {
				r.Use(s.authenticateAccess)
				r.Get("/self", s.handleSelf)

				// Logout also parses the refresh token for the record id,
				// signature only, so an already-revoked session can still
				// log out cleanly.
				r.With(s.parseRefresh).Post("/logout", s.handleLogout)
			})
		})

		// Tenant endpoints; listing is public so registration flows can
		// present organisations, everything else is ADMIN only
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", s.handleListTenants)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticateAccess)
				r.Use(s.requireRoles(auth.RoleAdmin))

				r.Post("/", s.handleCreateTenant)
				r.Get("/{id}", s.handleGetTenant)
				r.Patch("/{id}", s.handleUpdateTenant)
				r.Delete("/{id}", s.handleDeleteTenant)
			})
		})

		// User administration, ADMIN only
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authenticateAccess)
			r.Use(s.requireRoles(auth.RoleAdmin))

			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/{id}", s.handleGetUser)
			r.Patch("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})
	})

	return r
}

// handleHealth returns the server health status, including the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
	})
}
