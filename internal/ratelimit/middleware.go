package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/requestcontext"
)

// Rule is a named limit applied to a route group.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
	now      func() time.Time
}

type Option func(*Middleware)

// WithDisabled turns every rule into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerUser limits authenticated callers by user id, falling back to the
// client IP when the request carries no user.
func (m *Middleware) PerUser(rule Rule) func(http.Handler) http.Handler {
	return m.limit(rule, func(r *http.Request) string {
		if userID := requestcontext.UserID(r.Context()); !userID.IsNil() {
			return "user:" + userID.String()
		}
		return "ip:" + requestcontext.ClientIP(r.Context())
	})
}

// PerIP limits callers by client IP.
func (m *Middleware) PerIP(rule Rule) func(http.Handler) http.Handler {
	return m.limit(rule, func(r *http.Request) string {
		return "ip:" + requestcontext.ClientIP(r.Context())
	})
}

func (m *Middleware) limit(rule Rule, keyOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.disabled || rule.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rule.Name + ":" + keyOf(r)
			result, err := m.limiter.Allow(r.Context(), key, rule.Limit, rule.Window)
			if err != nil {
				// Fail open: a limiter outage must not take the API down.
				m.logger.Error("failed to check rate limit", "rule", rule.Name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.Warn("rate limit exceeded",
					"rule", rule.Name,
					"user_id", requestcontext.UserID(r.Context()).String(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				m.writeExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func (m *Middleware) writeExceeded(w http.ResponseWriter, result Result) {
	retryAfter := result.RetryAfter(m.now())
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: retryAfter,
	})
}
