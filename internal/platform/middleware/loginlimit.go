// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/taibuivan/nexora/internal/platform/apperr"
	"github.com/taibuivan/nexora/internal/platform/ctxutil"
	"github.com/taibuivan/nexora/internal/platform/respond"
)

// loginWindow tracks one source's attempt count inside the current window.
type loginWindow struct {
	count       int
	windowStart time.Time
}

// LoginLimiter is the strict fixed-window counter guarding the
// credential-exchange entry point.
//
// # Expiry Model
//
// Windows reset lazily: on the first attempt after the window has elapsed,
// the counter restarts. No background sweep is required — the key space is
// bounded by actively attempting sources, unlike sessions.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*loginWindow
	limit    int
	window   time.Duration
}

// NewLoginLimiter creates a limiter allowing limit attempts per window
// per source.
func NewLoginLimiter(limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string]*loginWindow),
		limit:    limit,
		window:   window,
	}
}

// Allow records one attempt from the source and reports whether it is within
// the window's capacity. The rejecting increment itself is the only state a
// refused attempt leaves behind.
func (limiter *LoginLimiter) Allow(source string) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := time.Now()
	entry, found := limiter.attempts[source]

	// Fresh source, or a window that has lapsed: start counting anew.
	if !found || now.Sub(entry.windowStart) >= limiter.window {
		limiter.attempts[source] = &loginWindow{count: 1, windowStart: now}
		return true
	}

	entry.count++
	return entry.count <= limiter.limit
}

// RetryAfter returns how many seconds remain in the source's current window.
func (limiter *LoginLimiter) RetryAfter(source string) int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	entry, found := limiter.attempts[source]
	if !found {
		return 0
	}

	remaining := limiter.window - time.Since(entry.windowStart)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Middleware wraps a handler with the attempt limit, keyed by client IP.
func (limiter *LoginLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			source := RealIP(request)

			if !limiter.Allow(source) {
				ctxutil.GetLogger(request.Context()).Warn("login_rate_limited",
					slog.String("source", source),
				)
				respond.Error(writer, request, apperr.RateLimited(limiter.RetryAfter(source)))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
