// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexora/internal/authz"
	"github.com/taibuivan/nexora/internal/platform/constants"
	"github.com/taibuivan/nexora/internal/platform/ctxutil"
	"github.com/taibuivan/nexora/internal/platform/middleware"
	"github.com/taibuivan/nexora/internal/platform/sec"
)

// stubVerifier satisfies middleware.TokenVerifier with canned results.
type stubVerifier struct {
	claims *sec.AuthClaims
	err    error
}

func (v *stubVerifier) Verify(tokenString string) (*sec.AuthClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

// memberClaims builds verified claims for an ordinary member.
func memberClaims() *sec.AuthClaims {
	return &sec.AuthClaims{
		Role:        sec.RoleMember,
		Permissions: sec.PermissionsFor(sec.RoleMember),
	}
}

// serveGate runs one request through the gate and reports whether the inner
// handler was reached, capturing the request the handler observed.
func serveGate(gate *middleware.Gate, request *http.Request) (recorder *httptest.ResponseRecorder, reached bool, observed *http.Request) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, innerRequest *http.Request) {
		reached = true
		observed = innerRequest
		writer.WriteHeader(http.StatusOK)
	})

	recorder = httptest.NewRecorder()
	gate.Middleware()(next).ServeHTTP(recorder, request)
	return recorder, reached, observed
}

// errorCode decodes the error envelope and returns its machine-readable code.
func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Code
}

/*
TestGate_PassesNonAPIRequests verifies classification: paths outside the
protected namespace skip the token check entirely.
*/
func TestGate_PassesNonAPIRequests(t *testing.T) {
	gate := middleware.NewGate(&stubVerifier{err: errors.New("must not be called")}, authz.Default(), nil)

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder, reached, _ := serveGate(gate, request)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestGate_PassesPublicRoutes verifies the exact method + path exemptions.
*/
func TestGate_PassesPublicRoutes(t *testing.T) {
	gate := middleware.NewGate(&stubVerifier{err: errors.New("bad token")}, authz.Default(), []middleware.PublicRoute{
		{Method: http.MethodPost, Path: "/api/v1/auth/login"},
	})

	// 1. The exact pair passes without a token
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	recorder, reached, _ := serveGate(gate, request)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 2. Same path, different method: not public
	request = httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	recorder, reached, _ = serveGate(gate, request)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestGate_RejectsMissingOrMalformedTokens verifies the bearer extraction stage.
*/
func TestGate_RejectsMissingOrMalformedTokens(t *testing.T) {
	gate := middleware.NewGate(&stubVerifier{claims: memberClaims()}, authz.Default(), nil)

	tests := []struct {
		name       string
		authHeader string
	}{
		{"missing_header", ""},
		{"wrong_scheme", "Basic dXNlcjpwYXNz"},
		{"bare_token", "some-token-without-scheme"},
		{"too_many_parts", "Bearer one two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
			if tt.authHeader != "" {
				request.Header.Set(constants.HeaderAuthorization, tt.authHeader)
			}

			recorder, reached, _ := serveGate(gate, request)

			assert.False(t, reached)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Equal(t, "UNAUTHENTICATED", errorCode(t, recorder))
		})
	}
}

/*
TestGate_RejectsFailedVerification verifies that a verifier failure produces a
generic 401 with no hint of the underlying cause.
*/
func TestGate_RejectsFailedVerification(t *testing.T) {
	gate := middleware.NewGate(&stubVerifier{err: errors.New("signature mismatch on segment 2")}, authz.Default(), nil)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	request.Header.Set(constants.HeaderAuthorization, "Bearer forged-token")

	recorder, reached, _ := serveGate(gate, request)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// The internal cause must never leak into the response body.
	assert.NotContains(t, recorder.Body.String(), "signature mismatch")
}

/*
TestGate_EnforcesPermissions verifies stage six: a verified member is refused
where the rule table demands a permission the role lacks.
*/
func TestGate_EnforcesPermissions(t *testing.T) {
	gate := middleware.NewGate(&stubVerifier{claims: memberClaims()}, authz.Default(), nil)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"member_reads", http.MethodGet, "/api/v1/posts", http.StatusOK},
		{"member_writes", http.MethodPost, "/api/v1/posts", http.StatusOK},
		{"member_cannot_delete", http.MethodDelete, "/api/v1/posts/123", http.StatusForbidden},
		{"member_cannot_admin", http.MethodGet, "/api/v1/admin/stats", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.path, nil)
			request.Header.Set(constants.HeaderAuthorization, "Bearer valid-token")

			recorder, _, _ := serveGate(gate, request)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			if tt.expectedStatus == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", errorCode(t, recorder))
			}
		})
	}
}

/*
TestGate_InjectsVerifiedIdentity verifies stage seven: the downstream handler
observes the identity headers and the claims in context.
*/
func TestGate_InjectsVerifiedIdentity(t *testing.T) {
	claims := memberClaims()
	claims.Subject = "user-42"

	gate := middleware.NewGate(&stubVerifier{claims: claims}, authz.Default(), nil)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	request.Header.Set(constants.HeaderAuthorization, "Bearer valid-token")

	recorder, reached, observed := serveGate(gate, request)

	require.True(t, reached)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 1. Identity headers for the proxy
	assert.Equal(t, "user-42", observed.Header.Get(constants.HeaderAuthSubject))
	assert.Equal(t, string(sec.RoleMember), observed.Header.Get(constants.HeaderAuthRole))

	// 2. Claims in context for gateway-local handlers
	fromContext := ctxutil.GetAuthUser(observed.Context())
	require.NotNil(t, fromContext)
	assert.Equal(t, "user-42", fromContext.Subject)
}

/*
TestGate_StripsSpoofedIdentityHeaders verifies that client-supplied identity
headers never survive the gate, on protected and public routes alike.
*/
func TestGate_StripsSpoofedIdentityHeaders(t *testing.T) {
	claims := memberClaims()
	claims.Subject = "real-user"

	gate := middleware.NewGate(&stubVerifier{claims: claims}, authz.Default(), []middleware.PublicRoute{
		{Method: http.MethodPost, Path: "/api/v1/auth/login"},
	})

	// 1. Protected route: spoofed value replaced by the verified subject
	request := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	request.Header.Set(constants.HeaderAuthorization, "Bearer valid-token")
	request.Header.Set(constants.HeaderAuthSubject, "spoofed-admin")
	request.Header.Set(constants.HeaderAuthRole, "admin")

	_, reached, observed := serveGate(gate, request)
	require.True(t, reached)
	assert.Equal(t, "real-user", observed.Header.Get(constants.HeaderAuthSubject))
	assert.Equal(t, string(sec.RoleMember), observed.Header.Get(constants.HeaderAuthRole))

	// 2. Public route: stripped, not replaced
	request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	request.Header.Set(constants.HeaderAuthSubject, "spoofed-admin")

	_, reached, observed = serveGate(gate, request)
	require.True(t, reached)
	assert.Empty(t, observed.Header.Get(constants.HeaderAuthSubject))
}

/*
TestNormalizePath verifies that every un-normalized spelling of a path is
rewritten to its canonical form before downstream handlers see it.
*/
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"already_clean", "/api/v1/posts", "/api/v1/posts"},
		{"doubled_leading_slash", "//api/v1/posts", "/api/v1/posts"},
		{"doubled_inner_slash", "/api//v1/posts", "/api/v1/posts"},
		{"dot_dot_segment", "/api/v1/../v1/posts", "/api/v1/posts"},
		{"trailing_slash", "/api/v1/posts/", "/api/v1/posts"},
		{"root", "/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var observed string
			next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				observed = request.URL.Path
			})

			request := httptest.NewRequest(http.MethodGet, tt.raw, nil)
			middleware.NormalizePath()(next).ServeHTTP(httptest.NewRecorder(), request)

			assert.Equal(t, tt.expected, observed)
		})
	}
}

/*
TestNormalizePath_GuardsGateClassification verifies the combination that
matters: with normalization in front, no alternate spelling of a protected
path slips past the gate's namespace check.
*/
func TestNormalizePath_GuardsGateClassification(t *testing.T) {
	gate := middleware.NewGate(&stubVerifier{err: errors.New("no token accepted")}, authz.Default(), nil)

	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	chain := middleware.NormalizePath()(gate.Middleware()(next))

	for _, raw := range []string{"//api/v1/posts", "/api//v1/posts", "/api/v1/../v1/posts"} {
		request := httptest.NewRequest(http.MethodGet, raw, nil)
		recorder := httptest.NewRecorder()
		chain.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code, raw)
	}
}
