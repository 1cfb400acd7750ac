package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"sahayak/internal/ratelimit/metrics"
	"sahayak/internal/ratelimit/models"
	"sahayak/pkg/platform/httputil"
	"sahayak/pkg/platform/middleware/metadata"
	"sahayak/pkg/requestcontext"
)

// Store admits or rejects one request under key.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (models.Result, error)
}

// Classifier picks the budget a request draws from.
type Classifier func(r *http.Request) models.Class

type Middleware struct {
	store    Store
	limits   map[models.Class]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled admits every request.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// New builds the middleware. Classes missing from limits are not limited.
func New(store Store, limits map[models.Class]models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, limits: limits, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit charges each request to the authenticated owner, or to the client
// address when there is none. Store failures admit the request.
func (m *Middleware) Limit(classify Classifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			class := classify(r)
			limit, ok := m.limits[class]
			if !ok || limit.Requests <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := string(class) + ":" + subject(r)
			result, err := m.store.Allow(ctx, key, limit)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"class", class,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				if m.metrics != nil {
					m.metrics.IncrementFailOpen()
				}
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncrementRejected(string(class))
				}
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Fixed returns a classifier that always answers class.
func Fixed(class models.Class) Classifier {
	return func(*http.Request) models.Class { return class }
}

func subject(r *http.Request) string {
	if owner := requestcontext.OwnerID(r.Context()); !owner.IsNil() {
		return "owner:" + owner.String()
	}
	if ip := metadata.GetClientIP(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + metadata.ClientIPFromRequest(r)
}

func addHeaders(w http.ResponseWriter, result models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, result models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "You are sending requests too quickly. Please wait a moment and try again.",
		RetryAfter:       result.RetryAfter,
	})
}
