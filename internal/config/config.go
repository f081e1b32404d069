// Package config loads the engine configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	Environment string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	DBMaxConns        int
	DBMaxConnIdleTime time.Duration
	DBMaxConnLifetime time.Duration

	// APIKey authenticates management API callers
	APIKey string

	// FileStoreDir is where object attachments are kept
	FileStoreDir string

	// HTTPTimeout bounds outbound source and target calls
	HTTPTimeout time.Duration

	// Workers and QueueSize dimension the run worker pool
	Workers   int
	QueueSize int
}

// Load loads the configuration from environment variables. A .env file is
// honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		Environment:  getEnv("ENVIRONMENT", "production"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBName:       getEnv("DB_NAME", "syncline"),
		APIKey:       getEnv("API_KEY", ""),
		FileStoreDir: getEnv("FILE_STORE_DIR", "files"),

		DBMaxConns:        getEnvAsInt("DB_MAX_CONNS", 20),
		DBMaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
		DBMaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),

		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		Workers:     getEnvAsInt("WORKERS", 4),
		QueueSize:   getEnvAsInt("QUEUE_SIZE", 64),
	}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an integer environment variable, falling back to the
// default on absence or parse failure.
func getEnvAsInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves a duration environment variable, falling back
// to the default on absence or parse failure.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
