// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"log/slog"
	"net/http"
	"net/http/httputil"

	"github.com/taibuivan/nexora/internal/platform/apperr"
	"github.com/taibuivan/nexora/internal/platform/constants"
	"github.com/taibuivan/nexora/internal/platform/ctxutil"
	"github.com/taibuivan/nexora/internal/platform/respond"
	"github.com/taibuivan/nexora/internal/session"
)

// NewProxy builds the pass-through handler for authorized API requests.
//
// # Behavior
//
// The gate has already verified the token and injected the identity headers
// by the time a request reaches this handler. The proxy's own contribution:
//
//   - Attach the caller's upstream API credential (reverse lookup via the
//     session store) as the backend Authorization header, replacing the
//     gateway access token, which the backend cannot verify.
//   - Strip the refresh cookie so the opaque session identifier never
//     crosses the trust boundary.
//
// A caller whose sessions are all gone (logged out everywhere, or expired)
// is forwarded without a credential; the backend treats such traffic as
// anonymous and applies its own rules.
func NewProxy(client *Client, sessions session.Store) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(client.BaseURL())

	defaultDirector := proxy.Director
	proxy.Director = func(request *http.Request) {
		defaultDirector(request)
		request.Host = client.BaseURL().Host

		// The gateway access token means nothing to the backend.
		request.Header.Del(constants.HeaderAuthorization)

		// Session identifiers stay on this side of the boundary.
		stripCookie(request, constants.RefreshCookieName)

		claims := ctxutil.GetAuthUser(request.Context())
		if claims == nil {
			return
		}

		credential, err := sessions.CredentialFor(request.Context(), claims.Subject)
		if err != nil {
			ctxutil.GetLogger(request.Context()).Warn("proxy_credential_missing",
				slog.String("subject", claims.Subject),
			)
			return
		}

		request.Header.Set(constants.HeaderAuthorization, "Bearer "+credential)
	}

	proxy.ErrorHandler = func(writer http.ResponseWriter, request *http.Request, err error) {
		respond.Error(writer, request, apperr.Upstream(err))
	}

	return proxy
}

// stripCookie removes one cookie by name, keeping the rest of the header.
func stripCookie(request *http.Request, name string) {
	cookies := request.Cookies()
	request.Header.Del("Cookie")
	for _, cookie := range cookies {
		if cookie.Name != name {
			request.AddCookie(cookie)
		}
	}
}
