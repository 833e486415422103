package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calendar_quiz_funnel/internal/app"
	"calendar_quiz_funnel/internal/domain/catalog"
	"calendar_quiz_funnel/internal/domain/payment"
	"calendar_quiz_funnel/internal/infra/config"
	idb "calendar_quiz_funnel/internal/infra/database"
	"calendar_quiz_funnel/internal/infra/httpapi"
	"calendar_quiz_funnel/internal/infra/logger"
	"calendar_quiz_funnel/internal/infra/scheduler"
	"calendar_quiz_funnel/internal/infra/sessioncache"
	stripegw "calendar_quiz_funnel/internal/infra/stripe"
	"calendar_quiz_funnel/internal/infra/telegram"
)

func main() {
	fmt.Println("Calendar quiz funnel starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	reconRepo := idb.NewPostgresReconciliationRepository(db)
	log.Info("Repositories initialized.")

	// Initialize Session Store
	sessionStore, err := sessioncache.NewStore(cfg.SessionCacheSize)
	if err != nil {
		log.Fatalf("Could not create session store: %v", err)
	}

	// Initialize Payment Gateway
	gateway := stripegw.NewAdapter(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	prices := payment.NewPriceTable(cfg.PriceIDStandard, cfg.PriceIDPremium, cfg.PriceIDGift)
	log.Info("Payment gateway initialized.")

	// Initialize optional sale notifier
	var notifier payment.Notifier
	if cfg.TelegramToken != "" {
		saleNotifier, err := telegram.NewSaleNotifier(cfg.TelegramToken, cfg.SalesChatID)
		if err != nil {
			log.Errorf("Sale notifier disabled, could not create Telegram bot: %v", err)
		} else {
			notifier = saleNotifier
			log.Info("Telegram sale notifier initialized.")
		}
	}

	// Initialize Services
	matcher := catalog.NewMatcher(nil)
	funnelSvc := app.NewFunnelService(userRepo, matcher, sessionStore, log)
	defer funnelSvc.Close()
	paymentSvc := app.NewPaymentService(userRepo, gateway, prices, reconRepo, notifier, cfg.BaseURL, log)
	log.Info("Funnel and payment services initialized.")

	// Initialize Reconciliation Sweeper
	sweeper := scheduler.NewReconciliationSweeper(paymentSvc, log, cfg.CronSpecReconcile)
	sweeper.Start()

	// Initialize HTTP Server
	server := httpapi.NewServer(cfg.HTTPAddr, cfg.Environment, cfg.AllowedOrigins, funnelSvc, paymentSvc, gateway, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
	log.Info("Application setup complete.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	sweeper.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	log.Info("Application shut down gracefully.")
}
