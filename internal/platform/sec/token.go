// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a cryptographically unguessable URL-safe string
// built from byteLength random bytes.
//
// It is used for session identifiers, where predictability would allow an
// attacker to hijack another user's rotation chain.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Stores keep only the digest so that a leaked store dump cannot be replayed
// as live session identifiers. SHA-256 (not bcrypt) because the input is
// already high-entropy random material and the hash is computed on every
// refresh request.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
