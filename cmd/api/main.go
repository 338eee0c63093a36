// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the authcore HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Install tracing and metrics.
//  4. Connect to PostgreSQL (pgxpool) and run migrations.
//  5. Connect to Redis.
//  6. Wire identity, account, session, audit and auth components.
//  7. Start HTTP server with graceful shutdown.
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
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/authcore/internal/api"
	"github.com/taibuivan/authcore/internal/audit"
	"github.com/taibuivan/authcore/internal/identity"
	"github.com/taibuivan/authcore/internal/platform/config"
	"github.com/taibuivan/authcore/internal/platform/constants"
	"github.com/taibuivan/authcore/internal/platform/metrics"
	"github.com/taibuivan/authcore/internal/platform/middleware"
	"github.com/taibuivan/authcore/internal/platform/migration"
	platformotel "github.com/taibuivan/authcore/internal/platform/otel"
	pgstore "github.com/taibuivan/authcore/internal/platform/postgres"
	redisstore "github.com/taibuivan/authcore/internal/platform/redis"
	"github.com/taibuivan/authcore/internal/platform/sec"
	"github.com/taibuivan/authcore/internal/users/account"
	"github.com/taibuivan/authcore/internal/users/auth"
	"github.com/taibuivan/authcore/internal/users/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String(constants.FieldApp, constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for background workers; cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Observability ──────────────────────────────────────────────────
	shutdownTracing, err := platformotel.Setup(startupCtx, constants.AppName, cfg.OTelEndpoint)
	must(log, err, "initialize tracing")
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("tracing_shutdown_failed", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 6. Tokens ─────────────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(sec.TokenConfig{
		Secret:     []byte(cfg.TokenSigningSecret),
		Issuer:     cfg.TokenIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	must(log, err, "initialize token service")

	// ── 7. Identity Exchange ──────────────────────────────────────────────
	var providers []identity.Provider
	if cfg.Google.Enabled() {
		providers = append(providers, identity.NewGoogle(providerConfig(cfg.Google)))
	}
	if cfg.Facebook.Enabled() {
		providers = append(providers, identity.NewFacebook(providerConfig(cfg.Facebook)))
	}
	exchanger := identity.NewExchanger(identity.NewRegistry(providers...), cfg.OAuthExchangeTimeout, collector, log)
	if len(exchanger.Providers()) == 0 {
		log.Warn("no_oauth_providers_configured")
	}

	// ── 8. Audit Recorder ─────────────────────────────────────────────────
	ipCipher, err := audit.NewIPCipher(cfg.AuditIPSecret)
	must(log, err, "initialize audit ip cipher")

	auditRecorder := audit.NewRecorder(audit.NewPostgresSink(pool), ipCipher, audit.RecorderConfig{
		BufferSize:   cfg.AuditBufferSize,
		DrainTimeout: constants.AuditDrainTimeout,
	}, collector, log)

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		auditRecorder.Run(rootCtx)
	}()

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	accountService := account.NewService(account.NewPostgresStore(pool), log)

	sessionService := session.NewService(
		session.NewPostgresStore(pool),
		session.NewRedisCache(rdb),
		session.Config{
			Horizon:     cfg.AccessTokenTTL,
			NegativeTTL: cfg.SessionNegativeCacheTTL,
		},
		collector,
		log,
	)

	authService := auth.NewService(exchanger, accountService, tokenService, sessionService, auditRecorder, collector, log)

	loginLimiter := middleware.NewLoginRateLimiter()
	go loginLimiter.Sweep(rootCtx)

	// ── 10. Health handlers (wired with real dependency checkers) ─────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 11. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Auth:      auth.NewHandler(authService, exchanger.Providers, loginLimiter),
		Account:   account.NewHandler(accountService, authService),
	}

	ipResolver, err := middleware.NewIPResolver(cfg.TrustedProxies)
	must(log, err, "parse trusted proxies")

	server := api.NewServer(rootCtx, cfg, log, ipResolver, handlers)

	// ── 12. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	exitCode := 0
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
		exitCode = 1
	}

	// Give in-flight requests enough time to complete.
	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		exitCode = 1
	}

	// Stop background workers; the audit recorder drains its buffer first.
	rootCancel()
	workers.Wait()
	log.Info("audit_recorder_stopped", slog.Int("pending", auditRecorder.Pending()))

	log.Info("server_stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// providerConfig maps configured client credentials onto an identity provider.
func providerConfig(client config.OAuthClient) identity.ProviderConfig {
	return identity.ProviderConfig{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURL:  client.RedirectURL,
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
