package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMongo  = "mongo"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Search     SearchConfig
	Aggregator AggregatorConfig
	Storage    StorageConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

// SearchConfig holds the search orchestration settings
type SearchConfig struct {
	DefaultQuery string `mapstructure:"default_query"`
	// NewSearchesEnabled permits live aggregator fetches on a cache miss
	NewSearchesEnabled bool `mapstructure:"new_searches_enabled"`
}

// AggregatorConfig holds listing aggregator API configuration
type AggregatorConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Engine          string        `mapstructure:"engine"`
	Currency        string        `mapstructure:"currency"`
	RequestsPerHour int           `mapstructure:"requests_per_hour"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"` // 1 means no retry
}

// StorageConfig holds result cache storage configuration
type StorageConfig struct {
	Type       string `mapstructure:"type"` // "mongo", "redis" or "memory"
	MongoURI   string `mapstructure:"mongo_uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	RedisURL   string `mapstructure:"redis_url"`
	RedisKey   string `mapstructure:"redis_key"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/productlens/")

	// PRODUCTLENS_SERVER_PORT -> server.port
	v.SetEnvPrefix("PRODUCTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// (even an empty one) so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.log_level", "info")

	v.SetDefault("search.default_query", "laptop")
	v.SetDefault("search.new_searches_enabled", true)

	v.SetDefault("aggregator.api_key", "")
	v.SetDefault("aggregator.base_url", "https://serpapi.com")
	v.SetDefault("aggregator.engine", "google_shopping")
	v.SetDefault("aggregator.currency", "USD")
	v.SetDefault("aggregator.requests_per_hour", 1000)
	v.SetDefault("aggregator.timeout", "30s")
	v.SetDefault("aggregator.max_attempts", 1)

	v.SetDefault("storage.type", StorageMongo)
	v.SetDefault("storage.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("storage.database", "productlens")
	v.SetDefault("storage.collection", "productsearchresults")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.redis_key", "productlens:searchresults")

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if strings.TrimSpace(config.Search.DefaultQuery) == "" {
		return fmt.Errorf("search default query must not be empty")
	}

	if config.Search.NewSearchesEnabled && config.Aggregator.APIKey == "" {
		return fmt.Errorf("aggregator API key is required while new searches are enabled (set PRODUCTLENS_AGGREGATOR_API_KEY)")
	}

	switch config.Storage.Type {
	case StorageMongo:
		if config.Storage.MongoURI == "" {
			return fmt.Errorf("mongo URI is required when storage type is 'mongo'")
		}
	case StorageRedis:
		if config.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required when storage type is 'redis'")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("storage type must be 'mongo', 'redis' or 'memory', got: %s", config.Storage.Type)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must be >= 0, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
