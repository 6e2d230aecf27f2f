// Package config loads API configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// AdminAPIKey guards operational endpoints; empty disables them.
	AdminAPIKey string

	// Market data
	BenchmarkTicker   string
	MarketDataURL     string
	SearchURL         string
	SummaryURL        string
	MarketDataTimeout time.Duration
	RedisURL          string
	PriceCacheTTL     time.Duration

	// Scheduler
	EnableScheduler    bool
	IndexFetchSchedule string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "folio"),
		DBPassword: getEnv("DB_PASSWORD", "folio"),
		DBName:     getEnv("DB_NAME", "folio"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:   getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		BenchmarkTicker:    strings.ToUpper(getEnv("BENCHMARK_TICKER", "SPY")),
		MarketDataURL:      os.Getenv("MARKET_DATA_URL"),
		SearchURL:          os.Getenv("MARKET_DATA_SEARCH_URL"),
		SummaryURL:         os.Getenv("MARKET_DATA_SUMMARY_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		IndexFetchSchedule: getEnv("INDEX_FETCH_SCHEDULE", "0 30 21 * * MON-FRI"),
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	if config.MarketDataTimeout, err = parseDuration("MARKET_DATA_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if config.PriceCacheTTL, err = parseDuration("PRICE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if config.EnableScheduler, err = parseBool(os.Getenv("ENABLE_SCHEDULER"), true); err != nil {
		return nil, fmt.Errorf("invalid ENABLE_SCHEDULER value: %w", err)
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// IsProduction reports whether the API runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func parseBool(s string, defaultVal bool) (bool, error) {
	if s == "" {
		return defaultVal, nil
	}
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("must be true, false, 1, or 0, got %q", s)
	}
}
