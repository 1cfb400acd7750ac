// Package httptransport serves the citizen boundary and the admin catalog
// path over HTTP.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sahayak/internal/platform/metrics"
	ratelimit "sahayak/internal/ratelimit/middleware"
	ratelimitmodels "sahayak/internal/ratelimit/models"
	"sahayak/pkg/platform/httputil"
	"sahayak/pkg/platform/middleware/admin"
	"sahayak/pkg/platform/middleware/auth"
	"sahayak/pkg/platform/middleware/metadata"
	"sahayak/pkg/platform/middleware/request"
	"sahayak/pkg/platform/middleware/requesttime"
)

// RouterConfig carries what NewRouter needs beyond the handlers.
type RouterConfig struct {
	Tokens     auth.JWTValidator
	AdminToken string
	// Metrics is optional. When set, requests are counted and /metrics is served.
	Metrics *metrics.Metrics
	// Limiter is optional. When set, owner and admin routes draw from its budgets.
	Limiter *ratelimit.Middleware
	// Readiness names the dependencies /readyz pings.
	Readiness map[string]func(context.Context) error
	Logger    *slog.Logger
}

// NewRouter wires the middleware chain and mounts both handler groups.
// Admin routes are only mounted when an admin token is configured.
func NewRouter(citizens *Handler, admins *AdminHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recover(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.Readiness, cfg.Logger))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOwner(cfg.Tokens, cfg.Logger))
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Limit(classifyCitizen))
		}
		citizens.Register(r)
	})

	if admins != nil && cfg.AdminToken != "" {
		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(cfg.Limiter.Limit(ratelimit.Fixed(ratelimitmodels.ClassAdmin)))
			}
			r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			admins.Register(r)
		})
	}
	return r
}

// classifyCitizen charges voice uploads to their own budget.
func classifyCitizen(r *http.Request) ratelimitmodels.Class {
	if strings.HasSuffix(r.URL.Path, "/voice") {
		return ratelimitmodels.ClassVoice
	}
	return ratelimitmodels.ClassConversation
}

func readiness(checks map[string]func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "readiness check failed", "dependency", name, "error", err)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
