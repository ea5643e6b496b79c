package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	MigrationsPath string

	SessionDuration time.Duration
	// GameRetention is how long a game stays readable after creation before
	// it expires.
	GameRetention time.Duration

	// DefaultAdmissionRadiusKm auto-approves joins inside this distance of
	// the host when a game doesn't set its own radius.
	DefaultAdmissionRadiusKm float64
	// BypassSecretTTL bounds how long a printed QR bypass secret stays
	// valid.
	BypassSecretTTL time.Duration

	// JoinRateLimit attempts per JoinRateWindow are allowed per requester.
	JoinRateLimit  int
	JoinRateWindow time.Duration

	AppBaseURL string

	// SES email notifier; empty SESFromEmail disables it.
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	// Google OAuth for linked-account guests.
	GoogleClientID     string
	GoogleClientSecret string

	SeedBlockedNames bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	// A missing .env file is fine; the environment may be set directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:    getEnv("DB_URL", ""),
		DatabasePath:   getEnv("DB_PATH", "./pickem.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		SessionDuration: getDuration("SESSION_DURATION", 24*time.Hour),
		GameRetention:   getDuration("GAME_RETENTION", 48*time.Hour),

		DefaultAdmissionRadiusKm: getFloat("ADMISSION_RADIUS_KM", 0.5),
		BypassSecretTTL:          getDuration("BYPASS_SECRET_TTL", 12*time.Hour),

		JoinRateLimit:  getInt("JOIN_RATE_LIMIT", 10),
		JoinRateWindow: getDuration("JOIN_RATE_WINDOW", time.Minute),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Pick'em"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		SeedBlockedNames: getBool("SEED_BLOCKED_NAMES", true),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s value %q, using default", key, value)
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid %s value %q, using default", key, value)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid %s value %q, using default", key, value)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid %s value %q, using default", key, value)
	}
	return defaultValue
}
