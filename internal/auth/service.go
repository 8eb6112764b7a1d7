// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the gateway's session issuance and rotation flows.

It handles the credential-exchange entry point (login against the upstream
backend), access-token minting, single-use refresh rotation, and logout.

Architecture:

  - Service: Orchestrates the flows (Login, Refresh, Logout).
  - session.Store: Owns the rotation-chain state.
  - sec.TokenService: Signs and verifies the short-lived access tokens.

The gateway never sees password hashes or user records — identity is entirely
the upstream backend's concern; this package only brokers it.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/nexora/internal/platform/apperr"
	"github.com/taibuivan/nexora/internal/platform/sec"
	"github.com/taibuivan/nexora/internal/session"
	"github.com/taibuivan/nexora/internal/upstream"
)

// # Contracts & Types

// IdentityExchanger defines the login boundary collaborator.
type IdentityExchanger interface {
	// ExchangeCredentials trades a username + password for an upstream
	// identity. Returns [upstream.ErrInvalidCredentials] on rejection.
	ExchangeCredentials(ctx context.Context, username, password string) (*upstream.Identity, error)
}

// TokenIssuer defines the contract for minting signed access tokens.
type TokenIssuer interface {
	// Issue creates a signed JWT string for the given subject.
	Issue(subject, username string, role sec.UserRole, permissions []sec.Permission, timeToLive time.Duration) (string, error)
}

// Service implements the session/token issuance use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to rotation, role
// resolution, or error mapping must be reviewed by the security team.
type Service struct {
	identity IdentityExchanger
	sessions session.Store
	tokens   TokenIssuer
	admins   map[string]struct{}
}

// NewService constructs a new [Service] with necessary dependencies.
//
// adminIDs is the administrative identity list: backend user identifiers
// granted [sec.RoleAdmin] at login and refresh.
func NewService(identity IdentityExchanger, sessions session.Store, tokens TokenIssuer, adminIDs []string) *Service {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Service{
		identity: identity,
		sessions: sessions,
		tokens:   tokens,
		admins:   admins,
	}
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established gateway session.
type LoginSession struct {
	AccessToken      string
	SessionID        string
	SessionExpiresAt time.Time
	UserID           string
	Username         string
	Role             sec.UserRole
}

/*
Login exchanges credentials with the upstream backend and establishes a session.

Description: On success the upstream credential is bound into a fresh
single-use session and a short-lived access token is minted carrying the
subject's role and permission set.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - error: Unauthenticated (bad credentials), Upstream, or internal failures
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {

	// Exchange credentials at the login boundary.
	identity, err := service.identity.ExchangeCredentials(ctx, input.Username, input.Password)
	if err != nil {
		// Wrong credentials get a generic message to prevent enumeration;
		// backend outages surface as a generic upstream failure.
		if errors.Is(err, upstream.ErrInvalidCredentials) {
			return nil, apperr.Unauthenticated("Invalid login credentials")
		}
		return nil, apperr.Upstream(err)
	}

	role := service.roleFor(identity.UserID)

	// Mint the short-lived Access Token
	accessToken, err := service.tokens.Issue(identity.UserID, identity.Username, role, sec.PermissionsFor(role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Bind the upstream credential into a fresh rotation chain
	sessionID, expiresAt, err := service.sessions.Create(ctx, identity.UserID, identity.Credential)
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:      accessToken,
		SessionID:        sessionID,
		SessionExpiresAt: expiresAt,
		UserID:           identity.UserID,
		Username:         identity.Username,
		Role:             role,
	}, nil
}

// # Session Rotation

/*
Refresh implements the single-use rotation mechanism.

Description: Consumes the presented session identifier — which invalidates it
permanently, replay attempts included — and returns a fresh access token plus
the successor identifier minted in the same atomic step.

Parameters:
  - ctx: context.Context
  - sessionID: string (the raw identifier from the refresh cookie)

Returns:
  - *LoginSession: New session credentials
  - error: Unauthenticated (absent/expired/replayed) or internal failures
*/
func (service *Service) Refresh(ctx context.Context, sessionID string) (*LoginSession, error) {

	// Consume: validity check, used-flag flip, and successor creation are
	// one atomic store operation.
	rotation, err := service.sessions.Consume(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			return nil, apperr.Unauthenticated("Invalid or expired refresh session")
		}
		return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
	}

	role := service.roleFor(rotation.UserID)

	// Mint a fresh Access Token. The username claim is only known at login;
	// rotated tokens identify the subject by ID alone.
	accessToken, err := service.tokens.Issue(rotation.UserID, "", role, sec.PermissionsFor(role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:      accessToken,
		SessionID:        rotation.NewID,
		SessionExpiresAt: rotation.ExpiresAt,
		UserID:           rotation.UserID,
		Role:             role,
	}, nil
}

/*
Logout removes every session belonging to the subject.

Description: Explicit logout is a compromise-response primitive: it kills all
rotation chains at once, so a stolen cookie dies with the legitimate ones.
Idempotent — logging out with no live sessions succeeds.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - error: Store failures
*/
func (service *Service) Logout(ctx context.Context, userID string) error {
	if err := service.sessions.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// roleFor resolves the role for a subject from the administrative list.
func (service *Service) roleFor(userID string) sec.UserRole {
	if _, isAdmin := service.admins[userID]; isAdmin {
		return sec.RoleAdmin
	}
	return sec.RoleMember
}
