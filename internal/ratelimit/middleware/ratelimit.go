package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"ledgerguard/internal/platform/middleware"
	"ledgerguard/internal/ratelimit/metrics"
	"ledgerguard/internal/ratelimit/models"
	"ledgerguard/pkg/platform/httputil"
)

// BucketStore counts requests per key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	failover *failover
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every limit into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback sets the store that answers while the primary store is
// failing, switched in and out by policy. Without one, requests pass
// unchecked during an outage.
func WithFallback(store BucketStore, policy BreakerPolicy) Option {
	return func(m *Middleware) {
		m.fallback = store
		m.failover = newFailover(policy)
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(primary BucketStore, limits map[models.EndpointClass]models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		limits:  limits,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit enforces the budget for class. It must run after RequireAuth so the
// actor is known; unauthenticated callers are keyed by remote address.
func (m *Middleware) Limit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := m.limits[class]
			if m.disabled || !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := models.NewKey(callerOf(r), class)
			result, degraded, err := m.check(ctx, key, limit)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"class", class,
					"request_id", middleware.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				m.metrics.IncrementRejected(string(class))
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool, error) {
	res, err := m.primary.Allow(ctx, key, limit)
	if err != nil {
		m.metrics.IncrementStoreErrors()
	}
	if m.failover == nil {
		return res, false, err
	}

	v, flipped := m.failover.observe(err)
	if flipped {
		m.metrics.SetDegraded(v == useFallback)
		if v == useFallback {
			m.logger.WarnContext(ctx, "rate limit store degraded, using fallback", "error", err)
		} else {
			m.logger.InfoContext(ctx, "rate limit store recovered")
		}
	}
	switch v {
	case usePrimary:
		return res, false, nil
	case passThrough:
		return nil, false, err
	}
	res, err = m.fallback.Allow(ctx, key, limit)
	return res, true, err
}

func callerOf(r *http.Request) string {
	if actor := middleware.GetActor(r.Context()); actor != "" {
		return "actor:" + string(actor)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
