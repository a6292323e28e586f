package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort     = ":5000"
	defaultDatabaseURL    = "file:roomchat.db"
	defaultAllowedOrigins = "http://localhost:3000"
	defaultTimeLocation   = "Local"
	defaultTimeFormat     = "3:04:05 PM"
)

type Config struct {
	ServerPort  string
	Environment string
	DatabaseURL string
	RedisURL    string

	AllowedOrigins []string

	// Display formatting for timestamps leaving the server
	TimeLocation string
	TimeFormat   string

	ClientSendBuffer int
	ShutdownTimeout  time.Duration

	// Rate limiting (disabled when RateLimitMaxRequests is 0)
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	// Seeder
	SeedRoom     string
	SeedUsername string
}

// Load reads the given .env files (or ./.env when none are given) and then
// the process environment. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file loaded, using process environment")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", defaultServerPort),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: getEnv("DATABASE_URL", defaultDatabaseURL),
		RedisURL:    os.Getenv("REDIS_URL"),

		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),

		TimeLocation: getEnv("TIME_LOCATION", defaultTimeLocation),
		TimeFormat:   getEnv("TIME_FORMAT", defaultTimeFormat),

		ClientSendBuffer: getEnvAsInt("CLIENT_SEND_BUFFER", 256),
		ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", "5s"),

		RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 0),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		SeedRoom:     getEnv("SEED_ROOM", "general"),
		SeedUsername: getEnv("SEED_USERNAME", "system"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.TimeLocation); err != nil {
		return fmt.Errorf("invalid TIME_LOCATION %q: %w", c.TimeLocation, err)
	}
	if c.ClientSendBuffer <= 0 {
		return fmt.Errorf("CLIENT_SEND_BUFFER must be positive, got %d", c.ClientSendBuffer)
	}
	if c.RateLimitMaxRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must not be negative, got %d", c.RateLimitMaxRequests)
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RateLimitEnabled reports whether HTTP rate limiting should be installed.
// It needs Redis for its counters.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitMaxRequests > 0 && c.RedisURL != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt retrieves environment variable as int with default value
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %d", key, defaultVal)
		return defaultVal
	}
	return val
}

// getEnvAsDuration retrieves environment variable as duration with default value
func getEnvAsDuration(key string, defaultVal string) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		valStr = defaultVal
	}
	duration, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %s", key, defaultVal)
		duration, _ = time.ParseDuration(defaultVal)
	}
	return duration
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultVal string) []string {
	raw := getEnv(key, defaultVal)

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
