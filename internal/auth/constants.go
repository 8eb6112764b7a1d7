// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// SessionTTL is the absolute lifetime of a refresh session. Long-lived
	// (7 days) to provide a good user experience; use never renews it.
	SessionTTL = 7 * 24 * time.Hour

	// SessionSweepInterval is how often the in-memory store reclaims
	// expired and used entries.
	SessionSweepInterval = 1 * time.Hour
)

// # Field Identifiers

// Global field names for validation and response mapping in the auth domain.
const (
	FieldUsername    = "username"
	FieldPassword    = "password"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldUser        = "user"
)
