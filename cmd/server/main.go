package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "intranet-lending/internal/api/http"
	"intranet-lending/internal/config"
	"intranet-lending/internal/inventory"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository/postgres"
	"intranet-lending/internal/security"
	"intranet-lending/internal/service"
	"intranet-lending/internal/storage"
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
	logger.Info("Starting Intranet Lending Service...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Inventory configuration", "base_url", cfg.Inventory.BaseURL, "locking", cfg.Locking.Strategy, "cache_dir", cfg.Cache.Dir)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
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

	if err := postgres.Migrate(context.Background(), db); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize the inventory client and item cache
	cacheStore, err := storage.NewFileStore(cfg.Cache.Dir)
	if err != nil {
		logger.Error("Failed to initialize cache directory", "error", err, "dir", cfg.Cache.Dir)
		log.Fatalf("Failed to initialize cache directory: %v", err)
	}
	credentials := inventory.NewCredentials(store.SettingsRepository, cfg.Inventory.APIToken, cfg.Inventory.TokenFile, cfg.Inventory.TokenFileKey)
	credentials.SetMemoryTTL(cfg.Inventory.TokenCacheTTL())
	client := inventory.NewClient(inventory.Options{
		BaseURL:        cfg.Inventory.BaseURL,
		PageLimit:      cfg.Inventory.PageLimit,
		ConnectTimeout: time.Duration(cfg.Inventory.ConnectTimeout) * time.Second,
		RequestTimeout: time.Duration(cfg.Inventory.RequestTimeout) * time.Second,
		RefreshHeader:  cfg.Inventory.RefreshHeader,
	}, credentials)
	catalog := inventory.NewItemCache(client, cacheStore, cfg.Inventory.BaseURL, cfg.Cache.TTL())

	var locker service.ItemLocker = service.NoopLocker{}
	if cfg.Locking.Strategy == "advisory" {
		locker = postgres.NewAdvisoryLocker(store.DB())
	}

	// Initialize Services
	availabilitySvc := service.NewAvailabilityService(store.RentalRepository, client)
	rentalSvc := service.NewRentalService(
		store.RentalRepository,
		store.UserRepository,
		client,
		catalog,
		availabilitySvc,
		locker,
	)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.NewHandler(rentalSvc, availabilitySvc, store.MirrorRepository), tokenManager)
	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped. Goodbye!")
}
