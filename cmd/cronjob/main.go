package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"intranet-lending/internal/config"
	"intranet-lending/internal/inventory"
	"intranet-lending/internal/jobs"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository/postgres"
	"intranet-lending/internal/scheduler"
	"intranet-lending/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'sync-inventory')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Intranet Lending Cronjob Runner...", "log_level", cfg.Log.Level)

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
	credentials := inventory.NewCredentials(store.SettingsRepository, cfg.Inventory.APIToken, cfg.Inventory.TokenFile, cfg.Inventory.TokenFileKey)
	credentials.SetMemoryTTL(cfg.Inventory.TokenCacheTTL())
	client := inventory.NewClient(inventory.Options{
		BaseURL:        cfg.Inventory.BaseURL,
		PageLimit:      cfg.Inventory.PageLimit,
		ConnectTimeout: time.Duration(cfg.Inventory.ConnectTimeout) * time.Second,
		RequestTimeout: time.Duration(cfg.Inventory.RequestTimeout) * time.Second,
		RefreshHeader:  cfg.Inventory.RefreshHeader,
	}, credentials)

	alertService := service.NewAlertService(
		cfg.Alert.SendGridAPIKey,
		cfg.Alert.FromEmail,
		cfg.Alert.FromName,
		cfg.Alert.Recipients,
	)

	jobServices := &jobs.Services{
		Inventory: client,
		Alert:     alertService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.MirrorRepository, jobServices, cfg)

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := cronScheduler.RunOnce(*runOnce); err != nil {
			logger.Error("Unknown job name", "job", *runOnce)
			fmt.Printf("Available jobs:\n")
			for _, name := range cronScheduler.JobNames() {
				fmt.Printf("  - %s\n", name)
			}
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
