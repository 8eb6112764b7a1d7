// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sec provides cryptographic primitives and token management.

# Architecture

This package isolates security-sensitive code (key handling, JWT signing,
secure random identifiers) from the domain logic. It acts as an Infrastructure
service injected into the Application layer via small interfaces.
*/
package sec

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// # Key Provider

// KeyProvider lazily parses and caches the RSA signing keypair.
//
// # Why lazy?
//
// Key material arrives as base64-encoded PEM in the process environment.
// Parsing happens at most once per key, on first use; after that, reads are
// lock-free because the cached key is immutable. A missing or malformed key
// is a configuration error and is surfaced on every access so that the
// failure is fatal rather than silently retried.
type KeyProvider struct {
	privateKeyB64 string
	publicKeyB64  string

	privateOnce sync.Once
	privateKey  *rsa.PrivateKey
	privateErr  error

	publicOnce sync.Once
	publicKey  *rsa.PublicKey
	publicErr  error
}

// NewKeyProvider constructs a [KeyProvider] from base64-encoded PEM material.
//
// No parsing happens here; errors are deferred to the first key access.
func NewKeyProvider(privateKeyB64, publicKeyB64 string) *KeyProvider {
	return &KeyProvider{
		privateKeyB64: privateKeyB64,
		publicKeyB64:  publicKeyB64,
	}
}

// PrivateKey returns the cached RSA private key, parsing it on first call.
//
// Safe for concurrent use: the populate-once transition is guarded by
// [sync.Once], so concurrent first accesses observe a single parse.
func (provider *KeyProvider) PrivateKey() (*rsa.PrivateKey, error) {
	provider.privateOnce.Do(func() {
		if provider.privateKeyB64 == "" {
			provider.privateErr = fmt.Errorf("sec: private key material is not configured")
			return
		}

		pemBytes, err := base64.StdEncoding.DecodeString(provider.privateKeyB64)
		if err != nil {
			provider.privateErr = fmt.Errorf("sec: private key is not valid base64: %w", err)
			return
		}

		key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
		if err != nil {
			provider.privateErr = fmt.Errorf("sec: failed to parse private key: %w", err)
			return
		}

		provider.privateKey = key
	})

	return provider.privateKey, provider.privateErr
}

// PublicKey returns the cached RSA public key, parsing it on first call.
func (provider *KeyProvider) PublicKey() (*rsa.PublicKey, error) {
	provider.publicOnce.Do(func() {
		if provider.publicKeyB64 == "" {
			provider.publicErr = fmt.Errorf("sec: public key material is not configured")
			return
		}

		pemBytes, err := base64.StdEncoding.DecodeString(provider.publicKeyB64)
		if err != nil {
			provider.publicErr = fmt.Errorf("sec: public key is not valid base64: %w", err)
			return
		}

		key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
		if err != nil {
			provider.publicErr = fmt.Errorf("sec: failed to parse public key: %w", err)
			return
		}

		provider.publicKey = key
	})

	return provider.publicKey, provider.publicErr
}
