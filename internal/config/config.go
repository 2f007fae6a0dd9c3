package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Generator GeneratorConfig
	Presets   PresetsConfig
	Redis     RedisConfig
	LogLevel  string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
	MaxUploadMB  int
}

// GeneratorConfig holds settings for the hosted image model
type GeneratorConfig struct {
	BaseURL      string
	APIKey       string
	IconModel    string
	HeatmapModel string
	Timeout      int // seconds
	Workers      int
	CacheTTL     int // seconds, 0 disables caching
}

// PresetsConfig holds preset library settings
type PresetsConfig struct {
	Path         string // optional directory of extra presets
	Default      string
	StrictImport bool
	MaxSessions  int
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string
	ConsumerName  string
	SnapshotTTL   int // seconds, 0 keeps snapshots forever
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			MaxUploadMB:  getEnvAsInt("SERVER_MAX_UPLOAD_MB", 10),
		},
		Generator: GeneratorConfig{
			BaseURL:      getEnv("GENERATOR_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey:       getEnv("GENERATOR_API_KEY", ""),
			IconModel:    getEnv("GENERATOR_ICON_MODEL", "imagen-4.0-fast-generate-001"),
			HeatmapModel: getEnv("GENERATOR_HEATMAP_MODEL", "gemini-2.5-flash-image-preview"),
			Timeout:      getEnvAsInt("GENERATOR_TIMEOUT", 60),
			Workers:      getEnvAsInt("GENERATOR_WORKERS", 4),
			CacheTTL:     getEnvAsInt("GENERATOR_CACHE_TTL", 3600),
		},
		Presets: PresetsConfig{
			Path:         getEnv("PRESETS_PATH", ""),
			Default:      getEnv("PRESETS_DEFAULT", "iOS Default"),
			StrictImport: getEnvAsBool("PRESETS_STRICT_IMPORT", false),
			MaxSessions:  getEnvAsInt("MAX_SESSIONS", 256),
		},
		Redis: RedisConfig{
			Addr:          getRedisAddr(),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			ConsumerGroup: getEnv("REDIS_CONSUMER_GROUP", "lockscreenr"),
			ConsumerName:  getEnv("REDIS_CONSUMER_NAME", ""),
			SnapshotTTL:   getEnvAsInt("REDIS_SNAPSHOT_TTL", 86400),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getRedisAddr resolves the Redis address from REDIS_URL or REDIS_ADDR.
// Unlike the generator, Redis is optional: an empty result keeps everything in memory.
func getRedisAddr() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return strings.TrimPrefix(url, "redis://")
	}
	return getEnv("REDIS_ADDR", "")
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
