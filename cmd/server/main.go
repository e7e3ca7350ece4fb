package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "pledgekit-backend/internal/api/http"
	"pledgekit-backend/internal/canny"
	"pledgekit-backend/internal/config"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/payment"
	"pledgekit-backend/internal/repository/postgres"
	"pledgekit-backend/internal/security"
	"pledgekit-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting PledgeKit Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "base_url", cfg.Server.BaseURL)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	// Initialize external clients
	paymentClient := payment.NewClient(cfg.Stripe.APIBaseURL, cfg.Stripe.SecretKey)
	cannyClient := canny.NewClient(cfg.Canny.APIBaseURL)

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.SendGrid, cfg.Server.BaseURL)
	accessSvc := service.NewAccessControlService(
		store.MemberRepository,
		store.AccessGrantRepository,
		store.ProjectRepository,
		store.CompanyRepository,
		store.UserRepository,
		emailSvc,
	)
	authSvc := service.NewAuthService(
		store.UserRepository,
		store.InviteRepository,
		store.MemberRepository,
		tokenManager,
		emailSvc,
	)
	companySvc := service.NewCompanyService(
		store.CompanyRepository,
		store.MemberRepository,
		store.InviteRepository,
		store.UserRepository,
		emailSvc,
	)
	projectSvc := service.NewProjectService(
		store.ProjectRepository,
		store.PledgeOptionRepository,
		store.PledgeRepository,
		store.MemberRepository,
		accessSvc,
	)
	pledgeSvc := service.NewPledgeService(
		store.PledgeRepository,
		store.ProjectRepository,
		store.PledgeOptionRepository,
		store.UserRepository,
		accessSvc,
		paymentClient,
		emailSvc,
		cfg.Server.BaseURL,
	)
	cannySyncSvc := service.NewCannySyncService(
		store.CompanyRepository,
		store.CannyRepository,
		store.ProjectRepository,
		store.MemberRepository,
		cannyClient,
	)

	// Initialize HTTP API
	apiServer := httpapi.NewServer(
		authSvc,
		companySvc,
		projectSvc,
		pledgeSvc,
		accessSvc,
		cannySyncSvc,
		tokenManager,
		cfg,
	)

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal, shutting down...", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
