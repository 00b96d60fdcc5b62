package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Progress storage backends
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	BotToken        string
	DefaultLang     string
	ProgressBackend string
	SQLitePath      string
	MetricsAddr     string
	Database        DatabaseConfig
	Cache           CacheConfig
	OpenAI          OpenAIConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// CacheConfig holds term/category cache settings
type CacheConfig struct {
	FreshTTL    time.Duration
	Retention   time.Duration
	StalePolicy string
}

// OpenAIConfig holds example sentence generation settings
type OpenAIConfig struct {
	APIKey        string
	Model         string
	RatePerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	freshTTL, err := getDuration("CACHE_FRESH_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	retention, err := getDuration("CACHE_RETENTION", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	ratePerMinute, err := getInt("EXAMPLE_RATE_PER_MINUTE", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		DefaultLang:     getEnv("DEFAULT_LANG", "en"),
		ProgressBackend: getEnv("PROGRESS_BACKEND", BackendPostgres),
		SQLitePath:      getEnv("SQLITE_PATH", "progress.db"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "medterms"),
			User:     getEnv("DB_USER", "medterms"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		Cache: CacheConfig{
			FreshTTL:    freshTTL,
			Retention:   retention,
			StalePolicy: getEnv("CACHE_STALE_POLICY", "refetch"),
		},
		OpenAI: OpenAIConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			Model:         os.Getenv("OPENAI_MODEL"),
			RatePerMinute: ratePerMinute,
		},
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	switch cfg.ProgressBackend {
	case BackendPostgres, BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("PROGRESS_BACKEND must be one of postgres, sqlite, memory, got %q", cfg.ProgressBackend)
	}
	if cfg.Cache.Retention < cfg.Cache.FreshTTL {
		return nil, fmt.Errorf("CACHE_RETENTION (%s) must not be shorter than CACHE_FRESH_TTL (%s)", cfg.Cache.Retention, cfg.Cache.FreshTTL)
	}

	return cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
