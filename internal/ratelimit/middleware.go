package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"civitas/internal/privacy"
	"civitas/pkg/platform/httputil"
	"civitas/pkg/requestcontext"
)

// Store records one request against key and reports whether it fits limit.
type Store interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Observer counts rejected requests.
type Observer interface {
	IncRateLimited(class string)
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

type Middleware struct {
	store    Store
	limits   map[Class]Limit
	logger   *slog.Logger
	observer Observer
}

type Option func(*Middleware)

func WithObserver(o Observer) Option {
	return func(m *Middleware) {
		m.observer = o
	}
}

func New(store Store, limits map[Class]Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, limits: limits, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Limit throttles requests per client IP. The IP is hashed before it
// becomes a key. A failing store lets the request through.
func (m *Middleware) Limit(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limit, ok := m.limits[class]
		if !ok || limit.Requests <= 0 || limit.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := string(class) + ":" + privacy.HashIdentifier(requestcontext.ClientIP(ctx))

			result, err := m.store.Allow(ctx, key, limit)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed {
				if m.observer != nil {
					m.observer.IncRateLimited(string(class))
				}
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
