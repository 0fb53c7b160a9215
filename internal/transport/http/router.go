// Package httptransport assembles the HTTP surface. Handlers delegate to
// domain services so transport concerns stay here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"txguard/internal/compliance/handler"
	"txguard/internal/platform/metrics"
	"txguard/pkg/platform/httputil"
	"txguard/pkg/platform/middleware/auth"
	"txguard/pkg/platform/middleware/request"
	"txguard/pkg/platform/middleware/requesttime"
)

// HealthCheck reports a named dependency's health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the router's collaborators. Auth may be nil to serve /v1 without
// bearer authentication; RateLimit may be nil to disable limiting.
type Deps struct {
	Compliance *handler.Handler
	Metrics    *metrics.Metrics
	Auth       auth.JWTValidator
	RateLimit  func(http.Handler) http.Handler
	Health     []HealthCheck
	Logger     *slog.Logger
}

// NewRouter wires all public endpoints.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Recover(logger))
	r.Use(request.Logger(logger))
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", healthHandler(d.Health))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if d.Auth != nil {
			r.Use(auth.RequireAuth(d.Auth, logger))
		}
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}
		d.Compliance.Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
