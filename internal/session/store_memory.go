// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/nexora/internal/platform/sec"
)

// MemoryStore is the process-local [Store] implementation.
//
// # Scope
//
// Single-instance deployments only: the map is not shared across processes,
// so a multi-replica deployment must use [RedisStore] instead. All methods
// are safe for concurrent use; a single mutex guards both indexes so the
// used-flag transition and successor creation are one atomic step.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session            // IDHash → session
	byUser   map[string]map[string]struct{} // UserID → set of IDHash
}

// NewMemoryStore creates an empty in-memory store whose sessions live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Create mints a new session for the user. It only fails if the system's
// entropy source does.
func (store *MemoryStore) Create(ctx context.Context, userID, credential string) (string, time.Time, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	id, entry, err := store.createLocked(userID, credential)
	if err != nil {
		return "", time.Time{}, err
	}
	return id, entry.ExpiresAt, nil
}

// Consume implements the single-use rotation contract.
//
// The used-flag flip and the successor creation happen under one lock
// acquisition, so two concurrent calls with the same identifier resolve to
// exactly one success and one [ErrInvalidSession].
func (store *MemoryStore) Consume(ctx context.Context, id string) (*Rotation, error) {
	idHash := sec.HashToken(id)

	store.mu.Lock()
	defer store.mu.Unlock()

	entry, found := store.sessions[idHash]
	if !found || !entry.Live(time.Now()) {
		// Absent, already used (replay), or past expiry: one collapsed error.
		return nil, ErrInvalidSession
	}

	// The identifier is dead from this point on, even if successor creation
	// were to fail. A half-rotated chain is safe; a replayable one is not.
	entry.Used = true

	newID, successor, err := store.createLocked(entry.UserID, entry.Credential)
	if err != nil {
		return nil, err
	}

	return &Rotation{
		UserID:     entry.UserID,
		Credential: entry.Credential,
		NewID:      newID,
		ExpiresAt:  successor.ExpiresAt,
	}, nil
}

// CredentialFor returns the credential of any live session owned by the user.
func (store *MemoryStore) CredentialFor(ctx context.Context, userID string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	for idHash := range store.byUser[userID] {
		if entry, found := store.sessions[idHash]; found && entry.Live(now) {
			return entry.Credential, nil
		}
	}

	return "", ErrInvalidSession
}

// InvalidateUser drops every session belonging to the user.
func (store *MemoryStore) InvalidateUser(ctx context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for idHash := range store.byUser[userID] {
		delete(store.sessions, idHash)
	}
	delete(store.byUser, userID)

	return nil
}

// # Garbage Collection

// StartJanitor launches the periodic sweep in a background goroutine.
//
// Sweeping is space reclamation only: expired and used entries are already
// functionally dead, so correctness never depends on the sweep having run.
func (store *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := store.Sweep()
				if removed > 0 {
					logger.Debug("session_sweep_completed", slog.Int("removed", removed))
				}
			case <-ctx.Done():
				// Stop the goroutine when the application shuts down
				return
			}
		}
	}()
}

// Sweep removes every used or expired entry and reports how many were dropped.
func (store *MemoryStore) Sweep() int {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	removed := 0

	for idHash, entry := range store.sessions {
		if entry.Live(now) {
			continue
		}

		delete(store.sessions, idHash)
		if owned, found := store.byUser[entry.UserID]; found {
			delete(owned, idHash)
			if len(owned) == 0 {
				delete(store.byUser, entry.UserID)
			}
		}
		removed++
	}

	return removed
}

// createLocked mints and indexes a new session. Callers must hold the mutex.
func (store *MemoryStore) createLocked(userID, credential string) (string, *Session, error) {
	id, err := sec.GenerateSecureToken(SessionIDLength)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	entry := &Session{
		IDHash:     sec.HashToken(id),
		UserID:     userID,
		Credential: credential,
		ExpiresAt:  now.Add(store.ttl),
		CreatedAt:  now,
	}

	store.sessions[entry.IDHash] = entry

	owned, found := store.byUser[userID]
	if !found {
		owned = make(map[string]struct{})
		store.byUser[userID] = owned
	}
	owned[entry.IDHash] = struct{}{}

	return id, entry, nil
}
