// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexora/internal/platform/sec"
)

const (
	testIssuer   = "nexora.app"
	testAudience = "nexora-api"
)

// newTestTokenService builds a TokenService backed by the shared test keypair.
func newTestTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	material := generateKeypair(t)
	keys := sec.NewKeyProvider(material.privateB64, material.publicB64)
	return sec.NewTokenService(keys, testIssuer, testAudience)
}

/*
TestTokenService_RoundTrip verifies that an issued token verifies under the
same key material and that every claim survives the round trip.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	permissions := sec.PermissionsFor(sec.RoleAdmin)

	// 1. Issue
	tokenString, err := service.Issue("user-42", "tai", sec.RoleAdmin, permissions, 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	// 2. Verify
	claims, err := service.Verify(tokenString)
	require.NoError(t, err)

	// 3. Claims survive intact
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "tai", claims.Username)
	assert.Equal(t, sec.RoleAdmin, claims.Role)
	assert.Equal(t, permissions, claims.Permissions)
	assert.Equal(t, testIssuer, claims.Issuer)
}

/*
TestTokenService_ExpiredToken verifies that a token past its expiry is rejected.
*/
func TestTokenService_ExpiredToken(t *testing.T) {
	service := newTestTokenService(t)

	// Negative TTL: the token is born expired.
	tokenString, err := service.Issue("user-42", "tai", sec.RoleMember, sec.PermissionsFor(sec.RoleMember), -1*time.Minute)
	require.NoError(t, err)

	_, err = service.Verify(tokenString)
	assert.Error(t, err)
}

/*
TestTokenService_WrongIssuerOrAudience verifies that a token minted for a
different issuer or audience fails verification even under the same keys.
*/
func TestTokenService_WrongIssuerOrAudience(t *testing.T) {
	material := generateKeypair(t)
	keys := sec.NewKeyProvider(material.privateB64, material.publicB64)

	verifier := sec.NewTokenService(keys, testIssuer, testAudience)

	tests := []struct {
		name     string
		issuer   string
		audience string
	}{
		{"foreign_issuer", "evil.example.com", testAudience},
		{"foreign_audience", testIssuer, "some-other-api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foreign := sec.NewTokenService(keys, tt.issuer, tt.audience)

			tokenString, err := foreign.Issue("user-42", "tai", sec.RoleMember, nil, 15*time.Minute)
			require.NoError(t, err)

			_, err = verifier.Verify(tokenString)
			assert.Error(t, err)
		})
	}
}

/*
TestTokenService_TamperedSignature verifies that flipping one character of the
signature invalidates the token.
*/
func TestTokenService_TamperedSignature(t *testing.T) {
	service := newTestTokenService(t)

	tokenString, err := service.Issue("user-42", "tai", sec.RoleMember, nil, 15*time.Minute)
	require.NoError(t, err)

	// Corrupt the final signature character.
	tampered := []byte(tokenString)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = service.Verify(string(tampered))
	assert.Error(t, err)
}

/*
TestTokenService_RejectsNonRSAAlgorithm verifies the algorithm pin: a token
signed with HS256 must be rejected even if it otherwise looks plausible.

This blocks the classic key-confusion attack where the public RSA key is
abused as an HMAC secret.
*/
func TestTokenService_RejectsNonRSAAlgorithm(t *testing.T) {
	service := newTestTokenService(t)

	claims := sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
		Role: sec.RoleAdmin,
	}

	hmacToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := hmacToken.SignedString([]byte("not-the-real-key"))
	require.NoError(t, err)

	_, err = service.Verify(tokenString)
	assert.Error(t, err)
}

/*
TestAuthClaims_HasPermission exercises the permission-set membership check.
*/
func TestAuthClaims_HasPermission(t *testing.T) {
	claims := &sec.AuthClaims{
		Role:        sec.RoleMember,
		Permissions: []sec.Permission{sec.PermissionRead, sec.PermissionWrite},
	}

	assert.True(t, claims.HasPermission(sec.PermissionRead))
	assert.True(t, claims.HasPermission(sec.PermissionWrite))
	assert.False(t, claims.HasPermission(sec.PermissionDelete))
	assert.False(t, claims.HasPermission(sec.PermissionAdmin))

	// An empty set grants nothing.
	empty := &sec.AuthClaims{}
	assert.False(t, empty.HasPermission(sec.PermissionRead))
}
