// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command gateway is the entry point for the Nexora API gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to Redis when a shared session store is configured.
//  4. Wire the key provider, token service, and session store.
//  5. Wire the upstream client, auth handlers, and authorization gate.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/nexora/internal/auth"
	"github.com/taibuivan/nexora/internal/authz"
	"github.com/taibuivan/nexora/internal/gateway"
	"github.com/taibuivan/nexora/internal/platform/config"
	"github.com/taibuivan/nexora/internal/platform/constants"
	"github.com/taibuivan/nexora/internal/platform/middleware"
	redisstore "github.com/taibuivan/nexora/internal/platform/redis"
	"github.com/taibuivan/nexora/internal/platform/sec"
	"github.com/taibuivan/nexora/internal/session"
	"github.com/taibuivan/nexora/internal/upstream"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Nexora] gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context shared by the background workers (session janitor, rate
	// limiter cleanup); cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// ── 3. Key Provider & Token Service ───────────────────────────────────
	// Keys parse lazily; force the first access now so a malformed keypair
	// fails the process at startup instead of on the first login.
	keys := sec.NewKeyProvider(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	_, err = keys.PrivateKey()
	must(log, err, "parse signing key")
	_, err = keys.PublicKey()
	must(log, err, "parse verification key")

	tokenService := sec.NewTokenService(keys, cfg.TokenIssuer, cfg.TokenAudience)

	// ── 4. Session Store ──────────────────────────────────────────────────
	var sessionStore session.Store
	var checkCache func() error

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(rootCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		sessionStore = session.NewRedisStore(rdb, auth.SessionTTL)
		checkCache = func() error {
			return redisstore.Ping(context.Background(), rdb)
		}
		log.Info("session_store_ready", slog.String("backend", "redis"))
	} else {
		memoryStore := session.NewMemoryStore(auth.SessionTTL)
		memoryStore.StartJanitor(rootCtx, auth.SessionSweepInterval, log)
		sessionStore = memoryStore
		log.Info("session_store_ready", slog.String("backend", "memory"))
	}

	// ── 5. Upstream Client ────────────────────────────────────────────────
	backend, err := upstream.NewClient(cfg.BackendURL)
	must(log, err, "configure backend client")

	// ── 6. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := gateway.NewHealthHandlers(gateway.HealthDependencies{
		CheckBackend: func() error {
			return backend.Ping(context.Background())
		},
		CheckCache: checkCache,
	}, log)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(backend, sessionStore, tokenService, cfg.AdminList())
	loginLimiter := middleware.NewLoginLimiter(constants.LoginAttemptLimit, constants.LoginAttemptWindow)
	authHandler := auth.NewHandler(authService, loginLimiter, cfg.IsProduction())

	gate := middleware.NewGate(tokenService, authz.Default(), []middleware.PublicRoute{
		{Method: http.MethodPost, Path: "/api/v1/auth/login"},
		{Method: http.MethodPost, Path: "/api/v1/auth/refresh"},
	})

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	handlers := gateway.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Proxy:     upstream.NewProxy(backend, sessionStore),
	}

	server := gateway.NewServer(rootCtx, cfg, log, gate, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
