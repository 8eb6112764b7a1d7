// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/nexora/internal/platform/apperr"
	"github.com/taibuivan/nexora/internal/platform/constants"
	"github.com/taibuivan/nexora/internal/platform/middleware"
	requestutil "github.com/taibuivan/nexora/internal/platform/request"
	"github.com/taibuivan/nexora/internal/platform/respond"
	"github.com/taibuivan/nexora/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// This handler manages the session lifecycle entry points (Login, Refresh,
// Logout). It is strictly a transport layer: status codes, cookies, JSON.
type Handler struct {
	authService   *Service
	loginLimiter  *middleware.LoginLimiter
	secureCookies bool
}

// NewHandler constructs a new [Handler].
//
// secureCookies controls the cookie Secure flag: on in production, off in
// development so local HTTP testing works.
func NewHandler(service *Service, limiter *middleware.LoginLimiter, secureCookies bool) *Handler {
	return &Handler{
		authService:   service,
		loginLimiter:  limiter,
		secureCookies: secureCookies,
	}
}

// Routes returns a [chi.Router] configured with the auth endpoints.
//
// # Endpoints
//   - POST /login   : Credential exchange (rate limited per source).
//   - POST /refresh : Single-use session rotation (cookie authenticated).
//   - POST /logout  : Invalidate all sessions (bearer authenticated).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.With(handler.loginLimiter.Middleware()).Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	// Protected by the gate (bearer token required)
	router.Post("/logout", handler.logout)

	return router
}

// # Request Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

/*
Login authenticates a user against the upstream backend.

POST /api/v1/auth/login

Description: Exchanges credentials upstream, mints a JWT access token, and
injects the single-use refresh session cookie into the response.

Request:
  - Body: loginRequest (Username, Password)

Response:
  - 200: Session: Access token and user identity
  - 401: ErrUnauthenticated: Invalid credentials
  - 429: ErrRateLimited: Attempt budget exhausted for this source
  - 502: ErrUpstream: Backend unreachable
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	loginSession, err := handler.authService.Login(request.Context(), LoginInput{
		Username:  input.Username,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, loginSession.SessionID, loginSession.SessionExpiresAt)

	respond.OK(writer, map[string]any{
		FieldAccessToken: loginSession.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(AccessTokenTTL / time.Second),
		FieldUser: map[string]string{
			"id":       loginSession.UserID,
			"username": loginSession.Username,
			"role":     string(loginSession.Role),
		},
	})
}

/*
Refresh rotates the session and issues a new access token.

POST /api/v1/auth/refresh

Description: Consumes the refresh cookie's session identifier. Consumption is
single-use: a replayed identifier — even one that was valid moments ago —
is rejected, signaling possible cookie theft.

Response:
  - 200: RefreshResponse: New access token, rotated cookie
  - 401: ErrUnauthenticated: Missing, expired, or replayed session
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthenticated("Missing refresh session"))
		return
	}

	loginSession, err := handler.authService.Refresh(request.Context(), cookie.Value)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, loginSession.SessionID, loginSession.SessionExpiresAt)

	respond.OK(writer, map[string]any{
		FieldAccessToken: loginSession.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(AccessTokenTTL / time.Second),
	})
}

/*
Logout terminates every session of the authenticated subject.

POST /api/v1/auth/logout

Description: Invalidates all rotation chains for the subject and clears the
refresh cookie from the client.

Response:
  - 204: No Content: Sessions terminated
  - 401: ErrUnauthenticated: No verified identity on the request
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

// # Cookie Helpers

// setRefreshCookie installs the session identifier, scoped to the auth path
// so it never travels with proxied API calls.
func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshCookieName,
		Value:    sessionID,
		Path:     constants.RefreshCookiePath,
		Expires:  expiresAt,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the cookie on the client.
func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshCookieName,
		Value:    "",
		Path:     constants.RefreshCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
