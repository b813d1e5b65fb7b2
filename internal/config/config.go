package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Backend
	BackendURL             string
	BackendWithCredentials bool
	BackendTimeout         time.Duration

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Workers
	WorkerCount int
	PosterTTL   time.Duration

	// Pages
	AssistantTopK  int
	CarouselWindow int

	AuthRatePerMinute int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                   getEnvOrDefault("PORT", "8080"),
		Env:                    getEnvOrDefault("ENV", "development"),
		BackendURL:             getEnvOrDefault("BACKEND_URL", "http://127.0.0.1:8000"),
		BackendWithCredentials: getEnvAsBoolOrDefault("BACKEND_WITH_CREDENTIALS", false),
		BackendTimeout:         time.Duration(getEnvAsIntOrDefault("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
		DatabaseURL:            mustGetEnv("DATABASE_URL"),
		RedisURL:               mustGetEnv("REDIS_URL"),
		SessionSecret:          mustGetEnv("SESSION_SECRET"),
		SessionTTL:             time.Duration(getEnvAsIntOrDefault("SESSION_TTL_HOURS", 72)) * time.Hour,
		WorkerCount:            getEnvAsIntOrDefault("WORKER_COUNT", 3),
		PosterTTL:              time.Duration(getEnvAsIntOrDefault("POSTER_TTL_MINUTES", 30)) * time.Minute,
		AssistantTopK:          getEnvAsIntOrDefault("ASSISTANT_TOP_K", 3),
		CarouselWindow:         getEnvAsIntOrDefault("CAROUSEL_WINDOW", 3),
		AuthRatePerMinute:      getEnvAsIntOrDefault("AUTH_RATE_PER_MINUTE", 10),
		FrontendURL:            getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
