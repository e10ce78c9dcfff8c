package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movebooking/internal/booking"
	"movebooking/internal/catalog"
	"movebooking/internal/httpapi"
	"movebooking/pkg/config"
	"movebooking/pkg/db"
	"movebooking/pkg/identity"
	"movebooking/pkg/logging"
	"movebooking/pkg/mq"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Identity.JWTSecret == "" {
		fatal(logger, "config", "error", "IDENTITY_JWT_SECRET is required")
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		fatal(logger, "db open", "error", err)
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		state, err := db.Migrate(cfg.MigrationsPath, cfg, 0)
		if err != nil {
			fatal(logger, "migrate", "schema", state.String(), "error", err)
		}
		logger.Info("schema migrated", "schema", state.String())
	}

	var publisher booking.EventPublisher = mq.Nop{}
	if cfg.Events.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			fatal(logger, "amqp", "error", err)
		}
		defer func() { _ = p.Close() }()
		publisher = p
	} else {
		logger.Info("AMQP_URL not set; booking events will not be published")
	}

	adminClient := identity.AdminClient{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    cfg.Identity.URL,
		ServiceKey: cfg.Identity.ServiceKey,
	}
	if !adminClient.Enabled() {
		logger.Info("identity admin client disabled; profile metadata will not be synced")
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:    cfg,
		DB:     conn,
		Logger: logger,
		Verifier: identity.Verifier{
			Secret:   cfg.Identity.JWTSecret,
			Issuer:   cfg.Identity.Issuer,
			Audience: cfg.Identity.Audience,
		},
		Identity:  adminClient,
		Publisher: publisher,
		Catalog:   catalog.Default(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "http serve", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}

func fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
