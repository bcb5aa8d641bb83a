package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	_ "go.uber.org/automaxprocs"

	"rajhholding/internal/config"
	"rajhholding/internal/database"
	"rajhholding/internal/identity"
	"rajhholding/internal/imghost"
	"rajhholding/internal/logging"
	"rajhholding/internal/ratelimit"
	"rajhholding/internal/server"
	"rajhholding/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	upstreamTimeout = 20 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", "err", err)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatal("Invalid log configuration", "err", err)
	}
	logger = logger.WithPrefix("api")

	logger.Info("Starting", "name", cfg.App.Name, "version", cfg.App.Version)
	logger.Info("Environment", "debug", cfg.App.Debug, "addr", cfg.App.Addr())

	logger.Info("Initializing database connection...")
	db, err := database.Open(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", "err", err)
	}
	defer func() {
		logger.Info("Closing database connections...")
		if err := database.Close(db); err != nil {
			logger.Error("Error closing database", "err", err)
		}
	}()

	gateway, err := database.NewGateway(db)
	if err != nil {
		logger.Fatal("Failed to create store gateway", "err", err)
	}

	upstream := &http.Client{Timeout: upstreamTimeout}
	provider, err := identity.New(&cfg.Supabase, identity.WithHTTPClient(upstream))
	if err != nil {
		logger.Fatal("Failed to create identity client", "err", err)
	}
	var imageHost services.ImageHost
	if cfg.Upload.APIKey != "" {
		host, err := imghost.New(&cfg.Upload, upstream)
		if err != nil {
			logger.Fatal("Failed to create image host client", "err", err)
		}
		imageHost = host
	} else {
		logger.Warn("IMGBB_API_KEY not set, image uploads disabled")
	}

	var limiter server.Limiter
	if cfg.RateLimit.RedisURL != "" {
		rl, err := ratelimit.NewRateLimiter(context.Background(), cfg.RateLimit.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "err", err)
		}
		defer rl.Close()
		limiter = rl
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	logger.Info("Initializing services...")
	emailSvc, err := services.NewEmailService(&cfg.Email, logger)
	if err != nil {
		logger.Fatal("Invalid email configuration", "err", err)
	}
	if !emailSvc.IsEnabled() {
		logger.Warn("EMAIL_ENABLED is false, contact notifications are only logged")
	}

	verifier, err := services.NewSessionVerifier(provider, logger)
	if err != nil {
		logger.Fatal("Failed to create session verifier", "err", err)
	}
	teamSvc, err := services.NewTeamService(gateway, verifier, logger)
	if err != nil {
		logger.Fatal("Failed to create team service", "err", err)
	}
	contactSvc, err := services.NewContactService(gateway, verifier, emailSvc, logger)
	if err != nil {
		logger.Fatal("Failed to create contact service", "err", err)
	}
	sessionSvc, err := services.NewSessionService(verifier, provider, logger)
	if err != nil {
		logger.Fatal("Failed to create session service", "err", err)
	}
	uploadSvc, err := services.NewUploadService(imageHost, verifier, logger)
	if err != nil {
		logger.Fatal("Failed to create upload service", "err", err)
	}

	srv := server.New(cfg, server.Services{
		Teams:    teamSvc,
		Contacts: contactSvc,
		Sessions: sessionSvc,
		Uploads:  uploadSvc,
		Health:   services.NewHealthService(gateway, cfg.App.Name),
	}, limiter, logger)

	httpServer := &http.Server{
		Addr:         cfg.App.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     logger.WithPrefix("http").StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server failed to start", "err", err)
	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown...", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Error during graceful shutdown", "err", err)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout exceeded, forcing close...")
			_ = httpServer.Close()
		}
	}

	// pending contact notifications; submissions still in flight after a
	// forced close are stored without one
	contactSvc.Drain()

	logger.Info("Server shutdown complete")
}
