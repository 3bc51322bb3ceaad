package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/api"
	"fleet-admin-console/internal/db"
	"fleet-admin-console/internal/mw"
	"fleet-admin-console/internal/provision"
	"fleet-admin-console/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "fleetd-dev ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("Warning: could not read .env: %v", err)
	}

	// Load configuration
	configPath := os.Getenv("FLEET_CONFIG")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath, true)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, cfg.Bootstrap)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	tokens := mw.NewTokenRegistry(cfg.Server.TokenTTL)

	pool := provision.NewWorkerPool(cfg.Provisioning.Workers, cfg.Provisioning.QueueSize, cfg.Provisioning.Delay, appStore)
	pool.Observe(func(job provision.Job, err error) {
		if err == nil {
			logger.Printf("applied %s job %s for device %s", job.Kind, job.ID, job.Device.IMEI)
		}
	})
	pool.Start(ctx)
	logger.Printf("provisioning pool started with %d workers, %s delay", cfg.Provisioning.Workers, cfg.Provisioning.Delay)

	router := api.NewRouter(appStore, tokens, pool, cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
