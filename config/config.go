package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects every environment-derived setting in one place so that
// components receive explicit configuration at construction instead of
// doing ambient lookups.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scraper  ScraperConfig
	Matcher  MatcherConfig
	Model    ModelConfig
	API      APIConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string
	Port           string
	AllowedOrigins string
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds the optional latest-price cache settings. The cache is
// disabled when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ScraperConfig holds page-fetching settings
type ScraperConfig struct {
	RequestTimeout time.Duration
	UseBrowser     bool // fetch pages with a headless browser instead of plain HTTP
	BrowserBin     string
}

// MatcherConfig holds cross-platform search settings
type MatcherConfig struct {
	RequestDelay        time.Duration // fixed delay between outbound search requests
	ProductDelay        time.Duration // fixed delay between products in the daily run
	SimilarityThreshold float64
	DedupThreshold      float64
	MaxQueriesPerVendor int
}

// ModelConfig holds the recommendation model endpoint settings
type ModelConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// APIConfig holds API surface settings
type APIConfig struct {
	RequireAPIKey bool
	APIKey        string
	RateLimit     float64 // requests per second per client
}

// Load reads the full configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_PRICE_TTL", 30*time.Minute),
		},
		Scraper: ScraperConfig{
			RequestTimeout: getEnvDuration("SCRAPER_TIMEOUT", 30*time.Second),
			UseBrowser:     getEnvBool("SCRAPER_USE_BROWSER", false),
			BrowserBin:     os.Getenv("SCRAPER_BROWSER_BIN"),
		},
		Matcher: MatcherConfig{
			RequestDelay:        getEnvDuration("MATCHER_REQUEST_DELAY", 1500*time.Millisecond),
			ProductDelay:        getEnvDuration("DAILY_PRODUCT_DELAY", 2*time.Second),
			SimilarityThreshold: getEnvFloat("MATCHER_SIMILARITY_THRESHOLD", 0.35),
			DedupThreshold:      getEnvFloat("MATCHER_DEDUP_THRESHOLD", 0.8),
			MaxQueriesPerVendor: getEnvInt("MATCHER_MAX_QUERIES", 2),
		},
		Model: ModelConfig{
			Endpoint: getEnv("MODEL_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			APIKey:   os.Getenv("MODEL_API_KEY"),
			Model:    getEnv("MODEL_NAME", "gpt-4o-mini"),
			Timeout:  getEnvDuration("MODEL_TIMEOUT", 25*time.Second),
		},
		API: APIConfig{
			RequireAPIKey: getEnvBool("API_REQUIRE_KEY", false),
			APIKey:        os.Getenv("API_KEY"),
			RateLimit:     getEnvFloat("API_RATE_LIMIT", 5),
		},
	}
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
