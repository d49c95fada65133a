// Package config loads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	AdminSeed   string // UID granted admin on startup, optional
	CacheTTL    time.Duration
	RateLimit   float64
	RateBurst   int
	LogLevel    string
	Environment string
}

// Load reads configuration from the environment. A missing .env file is
// not an error; a missing JWT secret is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   getEnv("JWT_ISSUER", "faithvibe"),
		JWTTTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
		AdminSeed:   os.Getenv("ADMIN_SEED_UID"),
		CacheTTL:    getEnvDuration("CACHE_TTL", 60*time.Second),
		RateLimit:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateBurst:   getEnvInt("RATE_LIMIT_BURST", 20),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
