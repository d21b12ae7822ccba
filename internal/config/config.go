package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Turnstile TurnstileConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type TurnstileConfig struct {
	SecretKey     string
	SiteKey       string
	BypassEnabled bool
}

// DimensionLimit is one {limit, window} pair for a rate limit dimension or an
// admin route group.
type DimensionLimit struct {
	Limit         int
	WindowSeconds int
}

func (d DimensionLimit) Window() time.Duration {
	return time.Duration(d.WindowSeconds) * time.Second
}

type RateLimitConfig struct {
	IP          DimensionLimit
	Fingerprint DimensionLimit
	Contact     DimensionLimit
	AdminRead   DimensionLimit
	AdminWrite  DimensionLimit
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// Load reads configuration from the environment. godotenv has already been
// applied by the caller, so plain os.Getenv sees .env values too.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Postgres: PostgresConfig{
			DSN: getEnv("DATABASE_URL", "host=localhost user=crm password=crm dbname=crm port=5432 sslmode=disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Turnstile: TurnstileConfig{
			SecretKey:     getEnv("TURNSTILE_SECRET_KEY", ""),
			SiteKey:       getEnv("TURNSTILE_SITE_KEY", ""),
			BypassEnabled: getEnvBool("TURNSTILE_BYPASS_ENABLED", false),
		},
		RateLimit: RateLimitConfig{
			IP:          DimensionLimit{getEnvInt("RATE_LIMIT_IP", 5), getEnvInt("RATE_LIMIT_IP_WINDOW", 60)},
			Fingerprint: DimensionLimit{getEnvInt("RATE_LIMIT_FINGERPRINT", 8), getEnvInt("RATE_LIMIT_FINGERPRINT_WINDOW", 60)},
			Contact:     DimensionLimit{getEnvInt("RATE_LIMIT_CONTACT", 3), getEnvInt("RATE_LIMIT_CONTACT_WINDOW", 300)},
			AdminRead:   DimensionLimit{getEnvInt("RATE_LIMIT_ADMIN_READ", 120), getEnvInt("RATE_LIMIT_ADMIN_READ_WINDOW", 60)},
			AdminWrite:  DimensionLimit{getEnvInt("RATE_LIMIT_ADMIN_WRITE", 30), getEnvInt("RATE_LIMIT_ADMIN_WRITE_WINDOW", 60)},
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 12),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	limits := map[string]DimensionLimit{
		"RATE_LIMIT_IP":          c.RateLimit.IP,
		"RATE_LIMIT_FINGERPRINT": c.RateLimit.Fingerprint,
		"RATE_LIMIT_CONTACT":     c.RateLimit.Contact,
		"RATE_LIMIT_ADMIN_READ":  c.RateLimit.AdminRead,
		"RATE_LIMIT_ADMIN_WRITE": c.RateLimit.AdminWrite,
	}
	for name, l := range limits {
		if l.Limit <= 0 || l.WindowSeconds <= 0 {
			return fmt.Errorf("%s must have positive limit and window", name)
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
