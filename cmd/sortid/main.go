package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"sorti-backend/config"
	"sorti-backend/internal/api"
	"sorti-backend/internal/db"
	"sorti-backend/internal/hub"
	"sorti-backend/internal/material"
	"sorti-backend/internal/notification"
	"sorti-backend/internal/ratelimit"
	"sorti-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "sorti-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.AdminKey == "" || cfg.Auth.IngestKey == "" {
		logger.Fatalf("auth.admin_key and auth.ingest_key must be configured")
	}

	factors, err := material.LoadTable(cfg.Materials.FactorsPath)
	if err != nil {
		logger.Fatalf("failed to load CO2 factor table: %v", err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	updateHub := hub.New(cfg.Stream.SubscriberBuffer)
	limiter := ratelimit.NewSlidingWindow(cfg.Ingest.RatePerMinute)

	// Fill alerts are optional: no VAPID keys, no worker pool.
	var webpushOptions *webpush.Options
	var alerts *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		alerts = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		alerts.Start(ctx)
		logger.Printf("fill alert worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; fill alerts disabled")
	}

	router := api.NewRouter(api.Deps{
		Store:     appStore,
		Hub:       updateHub,
		Limiter:   limiter,
		Materials: factors,
		Config:    cfg,
		Webpush:   webpushOptions,
		Alerts:    alerts,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
