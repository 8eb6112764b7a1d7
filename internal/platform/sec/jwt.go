// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the Role and Permission set directly inside the JWT, the
// authorization gate can enforce access WITHOUT consulting the session store
// or the upstream backend on every single API request. The token is the
// complete, stateless description of what its bearer may do until expiry.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	Username    string       `json:"unm,omitempty"`
	Role        UserRole     `json:"rol"`
	Permissions []Permission `json:"prm"`
}

// HasPermission reports whether the claim's permission set contains the
// required capability. Order inside the set is irrelevant.
func (claims *AuthClaims) HasPermission(required Permission) bool {
	for _, granted := range claims.Permissions {
		if granted == required {
			return true
		}
	}
	return false
}

// TokenService handles generation and verification of JWT tokens using RS256.
type TokenService struct {
	keys     *KeyProvider
	issuer   string
	audience string
}

// NewTokenService creates a new TokenService.
//
// Keys are resolved lazily through the provider, so construction never fails;
// a misconfigured keypair surfaces on the first Issue or Verify call.
func NewTokenService(keys *KeyProvider, issuer, audience string) *TokenService {
	return &TokenService{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
	}
}

// Issue creates a signed access token for a subject.
//
// # Parameters
//   - subject: The upstream user identifier.
//   - username: The display identity embedded for logging convenience.
//   - role: The role resolved at login.
//   - permissions: The permission set granted to that role.
//   - timeToLive: The duration before the token expires.
//
// The only failure mode is signing-key unavailability, which is a
// configuration error.
func (service *TokenService) Issue(subject, username string, role UserRole, permissions []Permission, timeToLive time.Duration) (string, error) {
	privateKey, err := service.keys.PrivateKey()
	if err != nil {
		return "", err
	}

	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    service.issuer,
			Audience:  jwt.ClaimStrings{service.audience},
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Username:    username,
		Role:        role,
		Permissions: permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a JWT string.
//
// # Failure Semantics
//
// Every failure (bad signature, wrong algorithm, wrong issuer or audience,
// expiry) collapses to a single error at this boundary. Callers log the
// specific reason for operators but must never echo it to the client, so a
// probing attacker cannot distinguish a forged signature from an expired
// token.
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	publicKey, err := service.keys.PublicKey()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&AuthClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return publicKey, nil
		},
		jwt.WithIssuer(service.issuer),
		jwt.WithAudience(service.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
