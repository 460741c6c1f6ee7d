package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort       int
	DatabasePath     string
	JWTSecret        string
	SessionTTL       time.Duration
	AllowedOrigins   []string
	ReminderSchedule string // cron expression for the due-task sweep
	LogLevel         string
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	ttlHoursStr := getEnv("SESSION_TTL_HOURS", "24")
	ttlHours, err := strconv.Atoi(ttlHoursStr)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:       port,
		DatabasePath:     getEnv("DATABASE_PATH", "./taskfolio.db"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTTL:       time.Duration(ttlHours) * time.Hour,
		AllowedOrigins:   []string{getEnv("FRONTEND_ORIGIN", "http://localhost:3000")},
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "@every 15m"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
