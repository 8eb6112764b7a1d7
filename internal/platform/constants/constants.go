// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire gateway.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities, login-attempt windows, IP tracking TTLs.
  - Security: Cookie configuration and identity header names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "nexora-gateway"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle,
	// including the proxied round trip to the backend.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP across the
	// whole router.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// LoginAttemptLimit is the number of credential-exchange attempts allowed
	// per source within one window.
	LoginAttemptLimit = 10

	// LoginAttemptWindow is the fixed window over which login attempts are counted.
	// The counter resets lazily on the first access after the window elapses.
	LoginAttemptWindow = 15 * time.Minute
)

// # Authentication

const (
	// RefreshCookieName is the name of the cookie that stores the session identifier.
	RefreshCookieName = "refresh"

	// RefreshCookiePath scopes the cookie to the auth endpoints so the opaque
	// session identifier never rides along on proxied API calls.
	RefreshCookiePath = "/api/v1/auth"

	// ProtectedPathPrefix is the namespace guarded by the authorization gate.
	// Everything outside it passes through with protective headers only.
	ProtectedPathPrefix = "/api/"
)

// # Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"

	// Identity headers injected by the gate for downstream proxy handlers.
	// Client-supplied values are always stripped before injection.
	HeaderAuthSubject = "X-Nexora-User"
	HeaderAuthRole    = "X-Nexora-Role"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession     = "session:id:"
	RedisPrefixUserSession = "session:user:"
)
