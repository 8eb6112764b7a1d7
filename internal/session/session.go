// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements the rotating, single-use refresh-session store.

A session is one link of a user's rotation chain: an opaque, unguessable
identifier bound to the upstream API credential obtained at login. Each
identifier can be consumed exactly once — consumption marks it used and mints
its successor in the same operation. A second consumption attempt with the
same identifier (a replayed or stolen cookie) must fail, which is the
replay-detection contract the whole refresh flow rests on.

# Architecture

  - Store: The storage contract (create, consume, reverse lookup, invalidate).
  - MemoryStore: Process-local map, the single-instance default.
  - RedisStore: Shared store for multi-instance deployments, with a scripted
    compare-and-swap for the single-use transition.

Stores keep only the SHA-256 digest of an identifier; the raw value exists
solely in transit and in the client's cookie jar.
*/
package session

import (
	"context"
	"errors"
	"time"
)

// SessionIDLength is the byte length of the random session identifier.
const SessionIDLength = 32

// ErrInvalidSession is the single error returned for any failed lookup or
// consumption: absent, expired, or already used.
//
// # Why one error?
//
// Distinguishing "expired" from "replayed" at this boundary would leak state
// about other parties' sessions to whoever holds a stale identifier. Callers
// translate this to a generic unauthenticated response; the distinction is
// not recoverable and not logged differently by design of the store API.
var ErrInvalidSession = errors.New("session: invalid, expired, or already used")

// # Domain Entities

// Session represents one stored rotation-chain link.
type Session struct {
	// IDHash is the SHA-256 digest of the opaque identifier. The raw value is
	// never persisted.
	IDHash string `json:"-"`

	// UserID is a weak back-reference for reverse lookup, never ownership.
	UserID string `json:"user_id"`

	// Credential is the upstream API secret obtained at login, opaque here.
	Credential string `json:"credential"`

	// ExpiresAt is the absolute wall-clock expiry. Use does not renew it.
	ExpiresAt time.Time `json:"expires_at"`

	// Used flips to true on consumption and never back.
	Used bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Live reports whether the session can still be consumed at the given instant.
func (s *Session) Live(now time.Time) bool {
	return !s.Used && now.Before(s.ExpiresAt)
}

// Rotation is the result of a successful consumption: the original bound
// credential plus the freshly minted successor identifier.
type Rotation struct {
	UserID     string
	Credential string

	// NewID is the successor identifier. The old identifier is dead
	// server-side the instant this value exists.
	NewID     string
	ExpiresAt time.Time
}

// # Storage Contract

// Store defines the session storage contract.
//
// Implementations must make Consume atomic with respect to concurrent calls
// on the same identifier: exactly one caller wins, every other caller gets
// [ErrInvalidSession]. A race here reopens the replay-detection hole.
type Store interface {

	// Create mints a new session bound to the user and credential and returns
	// the raw opaque identifier together with its absolute expiry.
	Create(ctx context.Context, userID, credential string) (id string, expiresAt time.Time, err error)

	// Consume validates the identifier, marks it used, and mints its
	// successor in the same atomic step. Returns [ErrInvalidSession] if the
	// identifier is absent, expired, or already used.
	Consume(ctx context.Context, id string) (*Rotation, error)

	// CredentialFor returns the credential of any one live session belonging
	// to the user, or [ErrInvalidSession] when none exists. No ordering
	// guarantee beyond "some valid one".
	CredentialFor(ctx context.Context, userID string) (string, error)

	// InvalidateUser removes every session belonging to the user. Used for
	// explicit logout and compromise response.
	InvalidateUser(ctx context.Context, userID string) error
}
