package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/auth"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/config"
	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/metrics"
)

// NewRouter builds the full HTTP surface.
func NewRouter(h *Handler, v *auth.Verifier, m *metrics.Metrics, limits config.RateLimit) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(RequestID)               // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS)
	r.Use(RateLimit(limits.Burst, limits.PerSecond))
	r.Use(m.Instrument)

	r.Get("/health", HealthCheck)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(v))

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.With(RequireAdmin).Post("/", h.CreateEvent)
			r.Get("/{id}", h.GetEvent)
			r.With(RequireAdmin).Patch("/{id}", h.UpdateEvent)
			r.With(RequireAdmin).Delete("/{id}", h.DeleteEvent)
			r.Post("/{id}/assign", h.Assign)
			r.Post("/{id}/remove", h.Remove)
			r.Get("/{id}/calendar.ics", h.Calendar)
			r.With(RequireAdmin).Get("/{id}/justifications", h.ListEventJustifications)
		})

		r.With(RequireAdmin).Get("/justifications", h.ListJustifications)
		r.With(RequireAdmin).Get("/dashboard", h.Dashboard)

		r.Route("/users", func(r chi.Router) {
			r.With(RequireAdmin).Get("/", h.ListUsers)
			r.With(RequireAdmin).Post("/", h.CreateUser)
			r.Get("/me", h.Me)
			r.Get("/{id}", h.GetUser)
			r.With(RequireAdmin).Patch("/{id}", h.UpdateUser)
		})
	})

	return r
}
