// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package upstream is the boundary to the backend social-platform API.

It owns the two ways requests leave the gateway:

  - Client: the login boundary collaborator that exchanges a user's
    credentials for a long-lived upstream API credential plus identity.
  - Proxy: the pass-through reverse proxy that authorized requests are
    forwarded into.

Everything behind this boundary (posts, comments, votes, agents) is the
backend's business logic and is never interpreted here.
*/
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Opiniated default timeouts for backend calls.
const (
	exchangeTimeout = 10 * time.Second
	pingTimeout     = 2 * time.Second
)

// ErrInvalidCredentials is returned when the backend rejects a login attempt.
//
// It is the only upstream failure a client may learn about; everything else
// is collapsed to a generic upstream error.
var ErrInvalidCredentials = errors.New("upstream: invalid credentials")

// Identity is the result of a successful credential exchange.
type Identity struct {
	// UserID is the backend's identifier for the account.
	UserID string `json:"user_id"`

	// Username is the display identity.
	Username string `json:"username"`

	// Credential is the long-lived backend API secret. It is opaque to the
	// gateway and lives only inside the session store.
	Credential string `json:"token"`
}

// Client talks to the backend API's own auth surface.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient parses the backend base URL and returns a ready client.
func NewClient(rawURL string) (*Client, error) {
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid backend URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("upstream: backend URL must be absolute: %q", rawURL)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: exchangeTimeout,
		},
	}, nil
}

// BaseURL returns the parsed backend base URL for the proxy.
func (client *Client) BaseURL() *url.URL {
	return client.baseURL
}

/*
ExchangeCredentials trades a username + password for a backend identity.

Description: Calls the backend's token endpoint. A 401/403 from the backend
means the credentials are wrong ([ErrInvalidCredentials]); any other failure
is a transport or backend error and is wrapped for the caller to surface as
a generic upstream failure.

Parameters:
  - ctx: context.Context
  - username: string
  - password: string

Returns:
  - *Identity: UserID, Username, and the long-lived API credential
  - error: ErrInvalidCredentials or wrapped transport/backend errors
*/
func (client *Client) ExchangeCredentials(ctx context.Context, username, password string) (*Identity, error) {

	// Build the token request body
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("upstream: encode login request: %w", err)
	}

	endpoint := client.baseURL.JoinPath("/api/v1/auth/token")
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: build login request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("upstream: login request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	switch {
	case response.StatusCode == http.StatusOK:
		// Fall through to decoding.
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("upstream: login returned status %d", response.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(response.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("upstream: decode login response: %w", err)
	}
	if identity.UserID == "" || identity.Credential == "" {
		return nil, fmt.Errorf("upstream: incomplete login response")
	}

	return &identity, nil
}

// Ping checks backend reachability for the readiness probe. Best-effort:
// any 2xx–4xx response proves the backend is alive.
func (client *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := client.baseURL.JoinPath("/health")
	request, err := http.NewRequestWithContext(pingCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("upstream: build ping request: %w", err)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("upstream: ping failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 500 {
		return fmt.Errorf("upstream: backend unhealthy (status %d)", response.StatusCode)
	}

	return nil
}
