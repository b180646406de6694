package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// External API
	Polygon PolygonConfig

	// Ranking
	Market MarketConfig

	// Watchlist
	Watchlist WatchlistConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// PolygonConfig holds Polygon.io API configuration
type PolygonConfig struct {
	APIKey       string
	BaseURL      string
	RateLimitRPS float64
	Timeout      time.Duration
}

// MarketConfig holds universe and loser-ranking configuration
type MarketConfig struct {
	// Exchanges are the MIC codes of the listing venues loaded into the universe
	Exchanges []string

	// MinPrice is applied to both the current price and the previous close
	MinPrice float64

	// DefaultLimit is used when a caller supplies no usable limit
	DefaultLimit int

	// Cron expressions for the background jobs
	RefreshSchedule  string
	UniverseSchedule string
}

// WatchlistConfig holds watchlist persistence configuration
type WatchlistConfig struct {
	FilePath string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Polygon: PolygonConfig{
			APIKey:       getEnv("POLYGON_API_KEY", ""),
			BaseURL:      getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			RateLimitRPS: getEnvAsFloat("POLYGON_RATE_LIMIT_RPS", 5.0),
			Timeout:      getEnvAsDuration("POLYGON_TIMEOUT", "30s"),
		},

		Market: MarketConfig{
			Exchanges:        getEnvAsList("MARKET_EXCHANGES", "XNYS,XNAS"),
			MinPrice:         getEnvAsFloat("MIN_PRICE", 15.0),
			DefaultLimit:     getEnvAsInt("DEFAULT_LIMIT", 10),
			RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "0 */5 * * * *"),
			UniverseSchedule: getEnv("UNIVERSE_SCHEDULE", "0 0 6 * * *"),
		},

		Watchlist: WatchlistConfig{
			FilePath: getEnv("WATCHLIST_FILE", "tracked_stocks.json"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Polygon.APIKey == "" {
		return fmt.Errorf("POLYGON_API_KEY is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if len(c.Market.Exchanges) == 0 {
		return fmt.Errorf("MARKET_EXCHANGES must list at least one exchange")
	}

	if c.Market.MinPrice < 0 {
		return fmt.Errorf("MIN_PRICE must not be negative")
	}

	if c.Market.DefaultLimit <= 0 {
		return fmt.Errorf("DEFAULT_LIMIT must be a positive integer")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	parts := strings.Split(valueStr, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, strings.ToUpper(p))
		}
	}

	return list
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
