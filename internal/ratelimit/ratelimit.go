// Package ratelimit provides a fixed-window request limiter for the validate
// path. The limiter fails open: if the counting store is unavailable the
// request proceeds, because a licensing check that hard-fails on an
// operational hiccup locks paying users out of their application.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// WindowStore counts hits per key inside a fixed window.
type WindowStore interface {
	// Incr adds one hit for key and returns the total within the current
	// window. The window resets ttl after the first hit.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces a per-client request budget.
type Limiter struct {
	store  WindowStore
	limit  int
	window time.Duration
	logger *slog.Logger
}

// New creates a Limiter allowing limit requests per window per client.
func New(store WindowStore, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, logger: logger}
}

// Middleware returns the chi-compatible middleware.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ratelimit:validate:" + clientIP(r)
		count, err := l.store.Incr(r.Context(), key, l.window)
		if err != nil {
			// Fail open.
			l.logger.WarnContext(r.Context(), "rate limit store unavailable", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		if count > int64(l.limit) {
			w.Header().Set("Retry-After", l.window.String())
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
