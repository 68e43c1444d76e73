// Package api wires middleware and handlers into the HTTP router.
package api

import (
	"net/http"

	"github.com/gitclixlogix/contentry/internal/api/middleware"
	"github.com/gitclixlogix/contentry/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *middleware.Auth
	RateLimit *middleware.RateLimit

	HealthHandler http.HandlerFunc

	SubmitModerationHandler http.HandlerFunc
	ModerationStatusHandler http.HandlerFunc

	ListJobsHandler http.HandlerFunc

	CreateProfileHandler http.HandlerFunc
	ListProfilesHandler  http.HandlerFunc
	GetProfileHandler    http.HandlerFunc
	DeleteProfileHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/moderate", orNotImplemented(deps.SubmitModerationHandler))
		r.Get("/api/v1/moderate/{jobID}", orNotImplemented(deps.ModerationStatusHandler))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))

		r.Post("/api/v1/profiles", orNotImplemented(deps.CreateProfileHandler))
		r.Get("/api/v1/profiles", orNotImplemented(deps.ListProfilesHandler))
		r.Get("/api/v1/profiles/{profileID}", orNotImplemented(deps.GetProfileHandler))
		r.Delete("/api/v1/profiles/{profileID}", orNotImplemented(deps.DeleteProfileHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented")
	}
}
