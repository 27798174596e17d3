package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/bazaar-golang/internal/auth"
	"github.com/01moynul/bazaar-golang/internal/cache"
	"github.com/01moynul/bazaar-golang/internal/config"
	"github.com/01moynul/bazaar-golang/internal/database"
	"github.com/01moynul/bazaar-golang/internal/events"
	"github.com/01moynul/bazaar-golang/internal/handlers"
	"github.com/01moynul/bazaar-golang/internal/logger"
	"github.com/01moynul/bazaar-golang/internal/metrics"
	"github.com/01moynul/bazaar-golang/internal/pricing"
	"github.com/01moynul/bazaar-golang/internal/routes"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 0. --- Config & Logger ---
	cfg := config.MustLoad()
	log := logger.New(cfg.Log)
	slog.SetDefault(log)
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Main Database Connection ---
	db, err := database.OpenDBWithDSN(ctx, cfg.DB.DSN, cfg.DB.MaxOpenConns)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// 2. --- Store, optionally behind the product cache ---
	var st store.Store = store.NewMySQLStore(db)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, product cache disabled", "error", err)
		} else {
			defer rdb.Close()
			st = cache.NewCachedStore(st, rdb, cfg.Redis.TTL, log)
		}
	}

	// 3. --- Order events ---
	var publisher events.Publisher = events.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		log.Info("publishing order events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.OrderTopic)
	}
	defer publisher.Close()

	// 4. --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// --- Application Setup ---
	app := &handlers.Handlers{
		Store:   st,
		Pricing: pricing.NewEngine(),
		Tokens:  auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Events:  publisher,
		Metrics: metrics.NewShopMetrics(reg),
		Log:     log,
	}

	// 5. --- Background Workers ---
	// Marks PENDING invoices past their due date as OVERDUE.
	go func() {
		ticker := time.NewTicker(cfg.Invoices.SweepInterval)
		defer ticker.Stop()

		log.Info("background worker started: monitoring for overdue invoices", "interval", cfg.Invoices.SweepInterval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.ProcessOverdueInvoices(ctx)
			}
		}
	}()

	// --- Router Setup ---
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           routes.SetupRouter(app, cfg, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server ---
	go func() {
		log.Info("starting bazaar API server", "addr", cfg.HTTP.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
