// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/nexora/internal/platform/sec"
)

// testKeypair holds one generated RSA keypair encoded the way the provider
// expects it: PEM wrapped in base64.
type testKeypair struct {
	privateB64 string
	publicB64  string
}

var (
	keypairOnce sync.Once
	keypair     testKeypair
)

// generateKeypair creates one 2048-bit RSA keypair for the whole test binary.
// Key generation is slow; every test shares the same material.
func generateKeypair(t *testing.T) testKeypair {
	t.Helper()

	keypairOnce.Do(func() {
		privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}

		privatePEM := pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
		})

		publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
		if err != nil {
			t.Fatalf("marshal public key: %v", err)
		}
		publicPEM := pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: publicDER,
		})

		keypair = testKeypair{
			privateB64: base64.StdEncoding.EncodeToString(privatePEM),
			publicB64:  base64.StdEncoding.EncodeToString(publicPEM),
		}
	})

	return keypair
}

/*
TestKeyProvider_ParsesValidKeys verifies that well-formed base64 PEM material
parses into a usable RSA keypair.
*/
func TestKeyProvider_ParsesValidKeys(t *testing.T) {
	material := generateKeypair(t)
	provider := sec.NewKeyProvider(material.privateB64, material.publicB64)

	// 1. Private key parses
	privateKey, err := provider.PrivateKey()
	require.NoError(t, err)
	require.NotNil(t, privateKey)

	// 2. Public key parses and matches the private half
	publicKey, err := provider.PublicKey()
	require.NoError(t, err)
	require.NotNil(t, publicKey)
	assert.True(t, privateKey.PublicKey.Equal(publicKey))
}

/*
TestKeyProvider_CachesParsedKeys verifies that repeated access returns the
same parsed key instance instead of re-decoding the material.
*/
func TestKeyProvider_CachesParsedKeys(t *testing.T) {
	material := generateKeypair(t)
	provider := sec.NewKeyProvider(material.privateB64, material.publicB64)

	first, err := provider.PrivateKey()
	require.NoError(t, err)

	second, err := provider.PrivateKey()
	require.NoError(t, err)

	// Same pointer: the parse happened exactly once.
	assert.Same(t, first, second)
}

/*
TestKeyProvider_InvalidMaterial verifies the failure modes: missing material,
broken base64, and base64 that does not contain a PEM key.
*/
func TestKeyProvider_InvalidMaterial(t *testing.T) {
	tests := []struct {
		name       string
		privateB64 string
		publicB64  string
	}{
		{"empty_material", "", ""},
		{"not_base64", "%%%not-base64%%%", "%%%not-base64%%%"},
		{
			"base64_but_not_pem",
			base64.StdEncoding.EncodeToString([]byte("hello")),
			base64.StdEncoding.EncodeToString([]byte("hello")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := sec.NewKeyProvider(tt.privateB64, tt.publicB64)

			_, err := provider.PrivateKey()
			assert.Error(t, err)

			_, err = provider.PublicKey()
			assert.Error(t, err)

			// The error is cached: a second access fails identically.
			_, secondErr := provider.PrivateKey()
			assert.Error(t, secondErr)
		})
	}
}

/*
TestKeyProvider_ConcurrentFirstAccess verifies that concurrent first reads
observe a single parse and all receive the same key.
*/
func TestKeyProvider_ConcurrentFirstAccess(t *testing.T) {
	material := generateKeypair(t)
	provider := sec.NewKeyProvider(material.privateB64, material.publicB64)

	const goroutines = 16

	results := make(chan *rsa.PrivateKey, goroutines)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := provider.PrivateKey()
			assert.NoError(t, err)
			results <- key
		}()
	}

	wg.Wait()
	close(results)

	// Every goroutine saw the same cached instance.
	var reference *rsa.PrivateKey
	for key := range results {
		if reference == nil {
			reference = key
			continue
		}
		assert.Same(t, reference, key)
	}
}
