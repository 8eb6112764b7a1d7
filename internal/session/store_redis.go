// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/nexora/internal/platform/constants"
	"github.com/taibuivan/nexora/internal/platform/sec"
)

// consumeScript atomically fetches and deletes a session entry.
//
// GET and DEL execute as one scripted step, so concurrent consumption
// attempts on the same identifier resolve to exactly one winner; the losers
// observe an absent key. Deletion doubles as the used-flag: a consumed entry
// simply no longer exists, and Redis TTLs handle expiry reclamation, so no
// janitor is needed for this store.
var consumeScript = redis.NewScript(`
local payload = redis.call('GET', KEYS[1])
if not payload then
	return false
end
redis.call('DEL', KEYS[1])
return payload
`)

// RedisStore is the shared [Store] implementation for multi-instance
// deployments.
//
// # Layout
//
//   - session:id:<sha256(id)>  → JSON session payload, EX = ttl
//   - session:user:<userID>    → set of identifier hashes for reverse lookup
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client as a session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create mints a new session and indexes it under the user.
func (store *RedisStore) Create(ctx context.Context, userID, credential string) (string, time.Time, error) {
	id, entry, err := store.mint(userID, credential)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := store.persist(ctx, entry); err != nil {
		return "", time.Time{}, err
	}

	return id, entry.ExpiresAt, nil
}

// Consume implements the single-use rotation contract via [consumeScript].
func (store *RedisStore) Consume(ctx context.Context, id string) (*Rotation, error) {
	idHash := sec.HashToken(id)

	result, err := consumeScript.Run(ctx, store.client, []string{sessionKey(idHash)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Script returned false: absent, expired, or already consumed.
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("session: redis consume failed: %w", err)
	}

	payload, ok := result.(string)
	if !ok {
		return nil, ErrInvalidSession
	}

	var entry Session
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("session: corrupt session payload: %w", err)
	}

	// Redis TTL already bounds the lifetime; re-check the absolute expiry so
	// a clock-skewed replica never revives a dead identifier.
	if !time.Now().Before(entry.ExpiresAt) {
		_ = store.client.SRem(ctx, userKey(entry.UserID), idHash).Err()
		return nil, ErrInvalidSession
	}

	// Drop the consumed hash from the reverse index.
	_ = store.client.SRem(ctx, userKey(entry.UserID), idHash).Err()

	// Mint and persist the successor.
	newID, successor, err := store.mint(entry.UserID, entry.Credential)
	if err != nil {
		return nil, err
	}
	if err := store.persist(ctx, successor); err != nil {
		return nil, err
	}

	return &Rotation{
		UserID:     entry.UserID,
		Credential: entry.Credential,
		NewID:      newID,
		ExpiresAt:  successor.ExpiresAt,
	}, nil
}

// CredentialFor scans the user's reverse index for any live session.
func (store *RedisStore) CredentialFor(ctx context.Context, userID string) (string, error) {
	hashes, err := store.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("session: redis reverse lookup failed: %w", err)
	}

	for _, idHash := range hashes {
		payload, err := store.client.Get(ctx, sessionKey(idHash)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired entry still referenced by the index: clean it up.
				_ = store.client.SRem(ctx, userKey(userID), idHash).Err()
				continue
			}
			return "", fmt.Errorf("session: redis lookup failed: %w", err)
		}

		var entry Session
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			continue
		}
		if time.Now().Before(entry.ExpiresAt) {
			return entry.Credential, nil
		}
	}

	return "", ErrInvalidSession
}

// InvalidateUser removes every indexed session of the user plus the index.
func (store *RedisStore) InvalidateUser(ctx context.Context, userID string) error {
	hashes, err := store.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("session: redis reverse lookup failed: %w", err)
	}

	pipeline := store.client.TxPipeline()
	for _, idHash := range hashes {
		pipeline.Del(ctx, sessionKey(idHash))
	}
	pipeline.Del(ctx, userKey(userID))

	if _, err := pipeline.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis invalidate failed: %w", err)
	}

	return nil
}

// mint builds a new unsaved session entry plus its raw identifier.
func (store *RedisStore) mint(userID, credential string) (string, *Session, error) {
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
	return id, entry, nil
}

// persist writes the entry and its reverse-index membership in one pipeline.
func (store *RedisStore) persist(ctx context.Context, entry *Session) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("session: encode failed: %w", err)
	}

	pipeline := store.client.TxPipeline()
	pipeline.Set(ctx, sessionKey(entry.IDHash), payload, store.ttl)
	pipeline.SAdd(ctx, userKey(entry.UserID), entry.IDHash)
	// Keep the index alive at least as long as its newest member.
	pipeline.Expire(ctx, userKey(entry.UserID), store.ttl)

	if _, err := pipeline.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis persist failed: %w", err)
	}

	return nil
}

func sessionKey(idHash string) string {
	return constants.RedisPrefixSession + idHash
}

func userKey(userID string) string {
	return constants.RedisPrefixUserSession + userID
}
