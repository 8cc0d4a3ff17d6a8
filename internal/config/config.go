// internal/config/config.go
// Centralized configuration management
// Loads from environment variables with sensible defaults

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/imadgeboyega/kiekky-matching/internal/ratelimit"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// Security
	JWTSecret string

	// Logging
	LogLevel  string
	LogFormat string

	// Rate Limiting
	RateLimitRequests      int
	RateLimitWindow        time.Duration
	RateLimitStoreTimeout  time.Duration
	RateLimitFailurePolicy string // "fallback", "open" or "closed"
	RateLimitReapInterval  time.Duration

	// Recommendations
	CandidatePoolSize          int
	DefaultRecommendationLimit int

	// Scoring
	AgeToleranceYears        float64
	DefaultDistanceCeilingKm float64
	InactivityThreshold      time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-key-change-this-in-production"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Rate Limiting
		RateLimitRequests:      getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:        getEnvDuration("RATE_LIMIT_WINDOW", "1m"),
		RateLimitStoreTimeout:  getEnvDuration("RATE_LIMIT_STORE_TIMEOUT", "50ms"),
		RateLimitFailurePolicy: getEnv("RATE_LIMIT_FAILURE_POLICY", "fallback"),
		RateLimitReapInterval:  getEnvDuration("RATE_LIMIT_REAP_INTERVAL", "5m"),

		// Recommendations
		CandidatePoolSize:          getEnvInt("CANDIDATE_POOL_SIZE", 200),
		DefaultRecommendationLimit: getEnvInt("DEFAULT_RECOMMENDATION_LIMIT", 10),

		// Scoring
		AgeToleranceYears:        getEnvFloat("AGE_TOLERANCE_YEARS", 10),
		DefaultDistanceCeilingKm: getEnvFloat("DEFAULT_DISTANCE_CEILING_KM", 100),
		InactivityThreshold:      getEnvDuration("INACTIVITY_THRESHOLD", "720h"), // 30 days
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWTSecret == "your-super-secret-key-change-this-in-production" && c.IsProduction() {
		return fmt.Errorf("JWT secret must be changed for production")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	// Rate limiting validation
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("rate limit requests must be positive")
	}
	if c.RateLimitWindow < time.Millisecond || c.RateLimitReapInterval <= 0 {
		return fmt.Errorf("rate limit window must be at least 1ms and reap interval positive")
	}
	if c.RateLimitStoreTimeout <= 0 {
		return fmt.Errorf("rate limit store timeout must be positive")
	}
	if _, err := ratelimit.ParseFailurePolicy(c.RateLimitFailurePolicy); err != nil {
		return err
	}

	// Recommendation validation
	if c.CandidatePoolSize < 1 || c.CandidatePoolSize > 5000 {
		return fmt.Errorf("candidate pool size must be between 1 and 5000")
	}
	if c.DefaultRecommendationLimit < 1 || c.DefaultRecommendationLimit > 50 {
		return fmt.Errorf("default recommendation limit must be between 1 and 50")
	}

	// Scoring validation
	if c.AgeToleranceYears <= 0 {
		return fmt.Errorf("age tolerance must be positive")
	}
	if c.DefaultDistanceCeilingKm <= 0 {
		return fmt.Errorf("default distance ceiling must be positive")
	}
	if c.InactivityThreshold <= 0 {
		return fmt.Errorf("inactivity threshold must be positive")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions

// getEnv gets a string value from environment with a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment with a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment with a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment with a default
func getEnvDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		// If parsing fails, try to parse the default
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
