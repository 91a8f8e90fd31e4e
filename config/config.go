package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Cache types
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
	CacheTypeNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	UPC       UPCConfig       `mapstructure:"upc"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UPCConfig holds UPC Item DB configuration
type UPCConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// GeminiConfig holds generative AI configuration.
// An empty APIKey is allowed; AI calls then fail individually.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffUnit       time.Duration `mapstructure:"backoff_unit"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// MatchingConfig holds the confidence gate shared by UPC verification and AI search
type MatchingConfig struct {
	ConfidenceThreshold int `mapstructure:"confidence_threshold"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory", "redis" or "none"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds product store configuration. An empty URL disables the store.
type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute per client IP
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format    string `mapstructure:"format"`
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
	NoColor   bool   `mapstructure:"no_color"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/prodlens/")

	// Environment variable settings: server.port -> PRODLENS_SERVER_PORT
	v.SetEnvPrefix("PRODLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known unprefixed names
	_ = v.BindEnv("gemini.api_key", "PRODLENS_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("database.url", "PRODLENS_DATABASE_URL", "DATABASE_URL")

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
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

// loadEnvFile loads ./.env into the environment without overriding variables that are
// already set. A missing file is not an error.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// UPC Item DB defaults (trial plan)
	v.SetDefault("upc.base_url", "https://api.upcitemdb.com/prod/trial")
	v.SetDefault("upc.timeout", "15s")
	v.SetDefault("upc.requests_per_minute", 6)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash-preview-09-2025")
	v.SetDefault("gemini.max_retries", 5)
	v.SetDefault("gemini.backoff_unit", "1s")
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("gemini.requests_per_minute", 60)

	v.SetDefault("matching.confidence_threshold", 80)

	// Cache defaults
	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")

	// Product store defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.auto_migrate", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Log defaults
	v.SetDefault("log.format", LogFormatText)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.add_source", false)
	v.SetDefault("log.no_color", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Matching.ConfidenceThreshold < 1 || config.Matching.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence threshold must be between 1 and 100, got: %d", config.Matching.ConfidenceThreshold)
	}

	if config.Gemini.MaxRetries < 1 {
		return fmt.Errorf("gemini max retries must be at least 1, got: %d", config.Gemini.MaxRetries)
	}

	switch config.Cache.Type {
	case CacheTypeMemory, CacheTypeRedis, CacheTypeNone:
	default:
		return fmt.Errorf("cache type must be 'memory', 'redis' or 'none', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == CacheTypeRedis && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Log.Format != LogFormatText && config.Log.Format != LogFormatJSON {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", config.Log.Format)
	}

	return nil
}
