package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"txguard/pkg/platform/httputil"
	"txguard/pkg/requestcontext"
)

type Middleware struct {
	store   Store
	limit   int
	window  time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

type Option func(*Middleware)

func WithMetrics(m *Metrics) Option {
	return func(mw *Middleware) { mw.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(mw *Middleware) {
		if l != nil {
			mw.logger = l
		}
	}
}

func New(store Store, limit int, window time.Duration, opts ...Option) *Middleware {
	m := &Middleware{store: store, limit: limit, window: window, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Handler rejects callers over the limit with 429. A store failure lets the
// request through: screening must not stop because the limiter is down.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := callerKey(r)

		res, err := m.store.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.metrics.Inc("error")
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			m.metrics.Inc("rejected")
			w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many requests. Please try again later.",
				RetryAfter: res.RetryAfter,
			})
			return
		}
		m.metrics.Inc("allowed")
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if sub := requestcontext.Subject(r.Context()); sub != "" {
		return "sub:" + sub
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
