package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskroom/internal/adapters/backend"
	emailPkg "taskroom/internal/adapters/email"
	web "taskroom/internal/adapters/http"
	"taskroom/internal/adapters/http/middleware"
	"taskroom/internal/adapters/storage"
	outboxStorePkg "taskroom/internal/adapters/storage/outbox"
	sessionStorePkg "taskroom/internal/adapters/storage/session"
	"taskroom/internal/application/orchestrators"
	"taskroom/internal/config"
	"taskroom/internal/domain/outbox"
	"taskroom/internal/observability"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// sessionSweepInterval is how often ended sessions are purged.
const sessionSweepInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $TASKROOM_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setupLogging(cfg)

	if cfg.SecretGenerated() {
		slog.Warn("secret_key is not set; using a random key, sessions and flashes will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := observability.NewTracing(ctx, observability.TracingConfig{
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceVersion: version,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("failed to start tracing: %v", err)
	}
	metrics := observability.NewMetrics()

	// Local database: sessions and the outbox only
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	timedDB := storage.NewTimedDB(db, metrics, 0)
	sessions := sessionStorePkg.NewSQLiteStore(timedDB)
	outboxStore := outboxStorePkg.NewSQLiteStore(timedDB)

	client, err := backend.New(backend.Options{
		URL:            cfg.Backend.URL,
		AnonKey:        cfg.Backend.AnonKey,
		ServiceRoleKey: cfg.Backend.ServiceRoleKey,
		Timeout:        cfg.Backend.Timeout,
		Metrics:        metrics,
	})
	if err != nil {
		log.Fatalf("failed to configure backend: %v", err)
	}
	if !client.HasAdminKey() {
		slog.Warn("backend.service_role_key is not set; orphaned accounts will stay queued in the outbox")
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.Email.ResendKey != "" {
		httpClient := &http.Client{Timeout: 15 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		sender = emailPkg.NewResendSender(httpClient, cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("email sender configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email.resend_key is not set; approval emails are DISABLED in production")
		} else {
			slog.Info("email sender configured", "provider", "noop")
		}
	}

	// Background workers: outbox retries and the session sweep
	stopCh := make(chan struct{})
	processor := orchestrators.NewOutboxProcessor(outboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeDeleteOrphanAccount: &orchestrators.OrphanAccountExecutor{Admin: client},
		outbox.ActionTypeApprovalEmail:       &orchestrators.ApprovalEmailExecutor{Sender: sender, LoginURL: cfg.LoginURL()},
	}, metrics)
	orchestrators.StartBackgroundWorker(processor, cfg.Outbox.Interval, stopCh)
	orchestrators.StartSessionSweeper(sessions, sessionSweepInterval, stopCh)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	defer limiter.Stop()

	handler, err := web.NewMux(web.Deps{
		Backend:    client,
		Sessions:   sessions,
		Outbox:     outboxStore,
		Metrics:    metrics,
		Limiter:    limiter,
		Secret:     cfg.Secret(),
		Secure:     cfg.IsProduction(),
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		log.Fatalf("failed to build handlers: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(handler, observability.ServiceName, otelhttp.WithTracerProvider(tracing.Provider())),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "tracing", tracing.Enabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http_shutdown_failed", "error", err.Error())
	}
	close(stopCh)
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		slog.Error("tracing_shutdown_failed", "error", err.Error())
	}
}

// setupLogging installs the default slog handler: JSON in production, text
// otherwise, at the configured level.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
