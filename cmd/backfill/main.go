// Command backfill replaces the stored benchmark price history with the
// provider's full daily history.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/jobs"
	"folio/internal/logger"
	"folio/internal/marketdata"
	"folio/internal/scheduler"
	"folio/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Backfill error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ticker := cfg.BenchmarkTicker
	if len(os.Args) > 1 {
		ticker = os.Args[1]
	}

	yahoo := marketdata.NewYahooClient(&http.Client{Timeout: cfg.MarketDataTimeout}, cfg.MarketDataURL)
	store := services.NewIndexPriceService(dbManager.DB(), yahoo)
	job := jobs.NewBackfillJob(ticker, yahoo, store)

	sched := scheduler.New()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sched.Stop()
	}()

	return sched.RunNow(job)
}
