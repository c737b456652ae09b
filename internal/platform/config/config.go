// Package config loads application settings from environment variables.
// Every missing or malformed value is collected and reported in a single error.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"product_backend/internal/platform/cache"
	"product_backend/internal/platform/db"
	"product_backend/internal/platform/redis"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	GinMode            string
	CORSAllowedOrigins []string
	// TrustedProxies lists proxy IPs or CIDRs allowed to set X-Forwarded-For. Empty trusts none.
	TrustedProxies []string
}

// AuthConfig holds token and throttling settings.
type AuthConfig struct {
	JWTSecret      string
	JWTExpiration  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// AppConfig is the top-level configuration.
type AppConfig struct {
	Server ServerConfig
	Auth   AuthConfig
	DB     db.Config
	Redis  redis.Config
	Cache  cache.Config
}

// Load reads the environment and validates the result.
func Load() (*AppConfig, error) {
	var problems []string

	server := ServerConfig{
		Port:               getOptionalEnv("PORT", "8080"),
		GinMode:            getOptionalEnv("GIN_MODE", ""),
		CORSAllowedOrigins: splitList(getOptionalEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		TrustedProxies:     splitList(getOptionalEnv("TRUSTED_PROXIES", "")),
	}

	auth := AuthConfig{
		JWTSecret:      getRequiredEnv("JWT_SECRET", &problems),
		JWTExpiration:  getOptionalEnvDuration("JWT_EXPIRATION", 24*time.Hour, &problems),
		RateLimitRPS:   getOptionalEnvFloat("AUTH_RATE_LIMIT_RPS", 5, &problems),
		RateLimitBurst: getOptionalEnvInt("AUTH_RATE_LIMIT_BURST", 10, &problems),
	}
	if auth.JWTExpiration <= 0 {
		problems = append(problems, "JWT_EXPIRATION must be positive")
	}
	if auth.RateLimitRPS <= 0 {
		problems = append(problems, "AUTH_RATE_LIMIT_RPS must be positive")
	}

	dbCfg := db.LoadConfigFromEnv()
	dbCfg.ConnectTimeout = getOptionalEnvDuration("DB_CONNECT_TIMEOUT", dbCfg.ConnectTimeout, &problems)
	switch dbCfg.Driver {
	case db.DriverSQLite:
	case db.DriverMySQL, db.DriverPostgres:
		if dbCfg.Name == "" {
			problems = append(problems, fmt.Sprintf("DB_NAME is required for driver %s", dbCfg.Driver))
		}
		if dbCfg.Host == "" && dbCfg.InstanceName == "" {
			problems = append(problems, fmt.Sprintf("DB_HOST or INSTANCE_CONNECTION_NAME is required for driver %s", dbCfg.Driver))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid value for DB_DRIVER: %q (want mysql, postgres or sqlite)", dbCfg.Driver))
	}

	redisCfg := redis.Config{
		Host:     getOptionalEnv("REDIS_HOST", ""),
		Port:     getOptionalEnv("REDIS_PORT", "6379"),
		Password: getOptionalEnv("REDIS_PASSWORD", ""),
		DB:       getOptionalEnvInt("REDIS_DB", 0, &problems),
	}

	defaults := cache.DefaultMemoryConfig()
	cacheCfg := cache.Config{
		Backend:    cache.BackendMemory,
		DefaultTTL: getOptionalEnvDuration("CACHE_DEFAULT_TTL", cache.DefaultTTL, &problems),
		Namespace:  getOptionalEnv("CACHE_NAMESPACE", "product_backend"),
		Memory: cache.MemoryConfig{
			Capacity:           getOptionalEnvInt("CACHE_CAPACITY", defaults.Capacity, &problems),
			NumShards:          getOptionalEnvInt("CACHE_SHARDS", defaults.NumShards, &problems),
			MaxTTL:             getOptionalEnvDuration("CACHE_MAX_TTL", defaults.MaxTTL, &problems),
			EvictionPercentage: getOptionalEnvInt("CACHE_EVICTION_PERCENTAGE", defaults.EvictionPercentage, &problems),
		},
	}
	if redisCfg.Enabled() {
		cacheCfg.Backend = cache.BackendRedis
	} else if err := cacheCfg.Memory.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return nil, errors.New("configuration errors:\n - " + strings.Join(problems, "\n - "))
	}

	return &AppConfig{
		Server: server,
		Auth:   auth,
		DB:     dbCfg,
		Redis:  redisCfg,
		Cache:  cacheCfg,
	}, nil
}

// getRequiredEnv records a problem when key is unset or empty.
func getRequiredEnv(key string, problems *[]string) string {
	value := os.Getenv(key)
	if value == "" {
		*problems = append(*problems, fmt.Sprintf("missing required environment variable: %s", key))
	}
	return value
}

func getOptionalEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, problems *[]string) int {
	valueStr := getOptionalEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(valueStr)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid value for %s: expected integer, got '%s'", key, valueStr))
		return defaultValue
	}
	return v
}

func getOptionalEnvFloat(key string, defaultValue float64, problems *[]string) float64 {
	valueStr := getOptionalEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid value for %s: expected number, got '%s'", key, valueStr))
		return defaultValue
	}
	return v
}

// getOptionalEnvDuration parses strings such as "15m" or "1h30s".
func getOptionalEnvDuration(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	valueStr := getOptionalEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(valueStr)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid value for %s: expected duration string, got '%s'", key, valueStr))
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
