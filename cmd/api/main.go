package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"folio/internal/config"
	"folio/internal/database"
	_ "folio/internal/docs" // Import swagger docs
	"folio/internal/handlers"
	"folio/internal/jobs"
	"folio/internal/logger"
	"folio/internal/marketdata"
	"folio/internal/middleware"
	"folio/internal/scheduler"
	"folio/internal/server"
	"folio/internal/services"
	"folio/internal/validator"
	"folio/internal/valuation"
)

// @title           Folio API
// @version         1.0
// @description     Folio tracks stock portfolios and measures every position against a benchmark index.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.Get()

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Market data
	yahoo := marketdata.NewYahooClient(&http.Client{Timeout: appConfig.MarketDataTimeout}, appConfig.MarketDataURL).
		WithEndpoints(appConfig.SearchURL, appConfig.SummaryURL)
	var prices valuation.PriceLookup = yahoo
	if appConfig.RedisURL != "" {
		opts, err := redis.ParseURL(appConfig.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		prices = marketdata.NewCachedSource(yahoo, rdb, appConfig.PriceCacheTTL)
		log.Infow("price cache enabled", "ttl", appConfig.PriceCacheTTL)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	portfolioService := services.NewPortfolioService(db)
	indexPriceService := services.NewIndexPriceService(db, prices)
	transactionService := services.NewTransactionService(db, portfolioService, indexPriceService, appConfig.BenchmarkTicker)
	valuationService := services.NewValuationService(transactionService, portfolioService, indexPriceService, prices, appConfig.BenchmarkTicker)
	searchService := services.NewSearchService(db, yahoo)
	statisticsService := services.NewStatisticsService(yahoo, valuationService)

	// Background jobs
	fetchJob := jobs.NewIndexPriceJob(appConfig.BenchmarkTicker, prices, indexPriceService)
	backfillJob := jobs.NewBackfillJob(appConfig.BenchmarkTicker, yahoo, indexPriceService)

	sched := scheduler.New()
	if appConfig.EnableScheduler {
		if err := sched.AddJob(appConfig.IndexFetchSchedule, fetchJob); err != nil {
			return fmt.Errorf("failed to schedule index price fetch: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	validator.Register()
	if appConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize handlers
	tokens := middleware.NewTokenIssuer(appConfig.JWTSecret, appConfig.JWTExpirationDur)
	router := server.NewRouter(server.Deps{
		DB:           db,
		Tokens:       tokens,
		AdminAPIKey:  appConfig.AdminAPIKey,
		Admins:       userService,
		Auth:         handlers.NewAuthHandler(userService, tokens),
		Users:        handlers.NewUserHandler(userService),
		Portfolios:   handlers.NewPortfolioHandler(portfolioService, valuationService),
		Transactions: handlers.NewTransactionHandler(transactionService),
		Valuations:   handlers.NewValuationHandler(valuationService),
		Search:       handlers.NewSearchHandler(searchService),
		Statistics:   handlers.NewStatisticsHandler(statisticsService),
		Admin:        handlers.NewAdminHandler(fetchJob, backfillJob),
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Folio backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
