package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"pledgekit-backend/internal/canny"
	"pledgekit-backend/internal/config"
	"pledgekit-backend/internal/jobs"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/repository/postgres"
	"pledgekit-backend/internal/scheduler"
	"pledgekit-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'sync-canny-boards', 'expire-campaigns', 'fail-stale-pledges', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting PledgeKit Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Services
	emailService := service.NewEmailService(cfg.SendGrid, cfg.Server.BaseURL)
	cannySyncService := service.NewCannySyncService(
		store.CompanyRepository,
		store.CannyRepository,
		store.ProjectRepository,
		store.MemberRepository,
		canny.NewClient(cfg.Canny.APIBaseURL),
	)

	jobServices := &jobs.Services{
		CannySync: cannySyncService,
		Email:     emailService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(db, store, jobServices, cfg)

	// Handle one-shot execution
	if *runOnce != "" {
		runSingleJob(jobRunner, *runOnce)
		return
	}

	// Initialize and start the scheduler
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal, shutting down...", "signal", sig)

	sched.Stop()
	logger.Info("Cronjob runner stopped")
}

func runSingleJob(jobRunner *jobs.JobRunner, name string) {
	switch name {
	case "sync-canny-boards":
		jobRunner.SyncCannyBoards()
	case "expire-campaigns":
		jobRunner.ExpireCampaigns()
	case "fail-stale-pledges":
		jobRunner.FailStalePledges()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		log.Fatalf("Unknown job: %s", name)
	}
}
