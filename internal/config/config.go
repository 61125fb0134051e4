package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	DatabaseType     string
	DatabasePath     string
	DatabaseURL      string
	MigrationsPath   string
	SessionDuration  time.Duration
	SessionSecret    string
	SessionCacheSize int
	Debug            bool

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	// Mission rules
	TimeZone     string
	CategoryGoal int

	// Email notifications (SES); disabled when SESFromEmail is empty
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:           getEnv("PORT", "8080"),
		DatabaseType:         getEnv("DB_TYPE", "sqlite"),
		DatabasePath:         getEnv("DB_PATH", "./dailymission.db"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionDuration:      getEnvDuration("SESSION_DURATION", 30*24*time.Hour),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionCacheSize:     getEnvInt("SESSION_CACHE_SIZE", 1024),
		Debug:                getEnvBool("DEBUG", false),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),
		TimeZone:             getEnv("TIMEZONE", "Local"),
		CategoryGoal:         getEnvInt("CATEGORY_GOAL", 20),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:         getEnv("SES_FROM_EMAIL", ""),
		SESFromName:          getEnv("SES_FROM_NAME", "Daily Mission"),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:8080"),
	}
}

// Location resolves the configured time zone used for calendar-day streak
// evaluation. Unknown names fall back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
