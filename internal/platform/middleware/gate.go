// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/nexora/internal/authz"
	"github.com/taibuivan/nexora/internal/platform/apperr"
	"github.com/taibuivan/nexora/internal/platform/constants"
	"github.com/taibuivan/nexora/internal/platform/ctxutil"
	"github.com/taibuivan/nexora/internal/platform/respond"
	"github.com/taibuivan/nexora/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in the gate.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the gate from the [sec.TokenService]
// implementation, allowing us to easily inject stubs during unit testing.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.AuthClaims, error)
}

// PublicRoute is an exact method + path pair exempt from the token check.
type PublicRoute struct {
	Method string
	Path   string
}

// Gate is the per-request authorization state machine.
//
// # Flow
//
//  1. Classify: paths outside the protected API namespace pass through.
//  2. Public-route check: exact (method, path) matches pass through.
//  3. Token extraction: require 'Authorization: Bearer <token>'.
//  4. Token verification via [TokenVerifier].
//  5. Permission resolution via the ordered rule table.
//  6. Permission enforcement against the token's permission set.
//  7. Injection: verified subject and role become request headers and
//     context values for the downstream proxy.
//
// Rejections are terminal and generic: the client learns only the error
// kind (unauthenticated vs forbidden), never the specific check that failed.
// The specific reason is logged with source address, path, and method for
// operator forensics.
type Gate struct {
	verifier TokenVerifier
	ruleset  *authz.Ruleset
	public   map[PublicRoute]struct{}
}

// NewGate constructs the authorization gate.
func NewGate(verifier TokenVerifier, ruleset *authz.Ruleset, publicRoutes []PublicRoute) *Gate {
	public := make(map[PublicRoute]struct{}, len(publicRoutes))
	for _, route := range publicRoutes {
		public[route] = struct{}{}
	}

	return &Gate{
		verifier: verifier,
		ruleset:  ruleset,
		public:   public,
	}
}

// Middleware returns the gate as a standard middleware decorator.
func (gate *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			logger := ctxutil.GetLogger(request.Context())
			path := request.URL.Path

			// ── 1. Classification ─────────────────────────────────────────────
			if !strings.HasPrefix(path, constants.ProtectedPathPrefix) {
				next.ServeHTTP(writer, request)
				return
			}

			// Client-supplied identity headers are never trusted.
			request.Header.Del(constants.HeaderAuthSubject)
			request.Header.Del(constants.HeaderAuthRole)

			// ── 2. Public Routes ──────────────────────────────────────────────
			if _, isPublic := gate.public[PublicRoute{Method: request.Method, Path: path}]; isPublic {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Extraction ───────────────────────────────────────────
			authHeader := request.Header.Get(constants.HeaderAuthorization)
			if authHeader == "" {
				logger.Warn("request_rejected",
					slog.String("reason", "missing_bearer_token"),
				)
				respond.Error(writer, request, apperr.Unauthenticated("Authentication required"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				logger.Warn("request_rejected",
					slog.String("reason", "malformed_authorization_header"),
				)
				respond.Error(writer, request, apperr.Unauthenticated("Authentication required"))
				return
			}

			// ── 4. Token Verification ─────────────────────────────────────────
			claims, err := gate.verifier.Verify(parts[1])
			if err != nil {
				// The specific failure stays server-side; clients get one
				// generic rejection regardless of cause.
				logger.Warn("request_rejected",
					slog.String("reason", "token_verification_failed"),
					slog.String("cause", err.Error()),
				)
				respond.Error(writer, request, apperr.Unauthenticated("Invalid or expired token"))
				return
			}

			// ── 5. Permission Resolution ──────────────────────────────────────
			required := gate.ruleset.Resolve(request.Method, path)

			// ── 6. Permission Enforcement ─────────────────────────────────────
			if !claims.HasPermission(required) {
				logger.Warn("request_forbidden",
					slog.String("subject", claims.Subject),
					slog.String("role", string(claims.Role)),
					slog.String("missing_permission", string(required)),
				)
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			// ── 7. Injection & Forward ────────────────────────────────────────
			request.Header.Set(constants.HeaderAuthSubject, claims.Subject)
			request.Header.Set(constants.HeaderAuthRole, string(claims.Role))

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
