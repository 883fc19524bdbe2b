package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulseapp/pulse/internal/api"
	"github.com/pulseapp/pulse/internal/config"
	"github.com/pulseapp/pulse/internal/ratelimit"
	"github.com/pulseapp/pulse/internal/repository/postgres"
	"github.com/pulseapp/pulse/internal/service"
	"github.com/pulseapp/pulse/internal/whop"
	"github.com/pulseapp/pulse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting Pulse...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	memberRepo := postgres.NewMemberRepository(db.DB)
	historyRepo := postgres.NewHistoryRepository(db.DB)

	// Platform client
	whopClient := whop.NewClient(cfg.WhopAPIURL, cfg.WhopAPIKey, cfg.HTTPTimeout, l)

	// Service layer
	svc := service.New(l, memberRepo, historyRepo, whopClient, cfg.SnapshotHour, cfg.RetentionDays)

	// Rate-limit store: shared Redis when configured, else process-local
	var limitStore ratelimit.Store
	if cfg.RedisAddr != "" {
		redisStore := ratelimit.NewRedisStore(cfg.RedisAddr, cfg.SyncRateLimit)
		if err := redisStore.Ping(context.Background()); err != nil {
			l.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		defer redisStore.Close()
		limitStore = redisStore
		l.Infof("Using Redis rate-limit store at %s", cfg.RedisAddr)
	} else {
		limitStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(limitStore, ratelimit.SystemClock{}, cfg.SyncRateLimit)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Start daily snapshot scheduler for the configured company
	if cfg.WhopCompanyID != "" {
		go svc.StartSnapshotScheduler(ctx, cfg.WhopCompanyID)
	} else {
		l.Warn("WHOP_COMPANY_ID not set, snapshots run only via the cron endpoint")
	}

	// HTTP server
	apiServer := api.NewServer(svc, whopClient, limiter, api.Options{
		DefaultCompanyID: cfg.WhopCompanyID,
		CronSecret:       cfg.CronSecret,
		WebhookSecret:    cfg.WebhookSecret,
	}, l)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("Pulse started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("Pulse stopped")
}
