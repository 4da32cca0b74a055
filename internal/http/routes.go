package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterConfig wires the handler into a chi router.
type RouterConfig struct {
	Handler *Handler

	// AdminAPIKey protects /v1/policy. Empty leaves it open.
	AdminAPIKey string

	// MetricsRegisterer defaults to prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer
}

// NewRouter assembles middleware and routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithRecover)
	r.Use(WithLogging)

	r.Post("/v1/check", cfg.Handler.Check)
	r.Method(http.MethodGet, "/v1/policy", WithAdminKey(cfg.AdminAPIKey, http.HandlerFunc(cfg.Handler.Policy)))

	r.Get("/healthz", cfg.Handler.Healthz)
	r.Get("/readyz", cfg.Handler.Readyz)
	r.Method(http.MethodGet, "/metrics", RegisterMetrics(cfg.MetricsRegisterer))

	return r
}
