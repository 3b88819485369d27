package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigins []string

	// Storage
	DataBackend      string
	DatabaseURL      string
	DBConnectRetries int
	DBConnectDelay   time.Duration
	RedisURL         string

	// Upstream backend behind the /api/* proxy
	APIBaseURL   string
	ProxyTimeout time.Duration

	// Coach
	GeminiAPIKey    string
	CoachModel      string
	CoachTimeout    time.Duration
	CoachMaxHistory int

	// Logging
	LogLevel  string
	LogFormat string

	DemoUserID string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		DataBackend:      getEnv("DATA_BACKEND", BackendPostgres),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 60),
		DBConnectDelay:   getEnvDuration("DB_CONNECT_DELAY", 2*time.Second),
		RedisURL:         getEnv("REDIS_URL", ""),

		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8000"),
		ProxyTimeout: getEnvDuration("PROXY_TIMEOUT", 15*time.Second),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		CoachModel:      getEnv("COACH_MODEL", "gemini-2.5-flash"),
		CoachTimeout:    getEnvDuration("COACH_TIMEOUT", 30*time.Second),
		CoachMaxHistory: getEnvInt("COACH_MAX_HISTORY", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DemoUserID: getEnv("DEMO_USER_ID", "demo-user"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using the postgres backend")
		}
	case BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendPostgres, BackendMemory))
	}

	if c.DBConnectRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid DB connect retries %d: must be at least 1", c.DBConnectRetries))
	}

	if c.APIBaseURL != "" {
		if u, err := url.Parse(c.APIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}

	if c.ProxyTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid proxy timeout %v: must be positive", c.ProxyTimeout))
	}
	if c.CoachTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid coach timeout %v: must be positive", c.CoachTimeout))
	}
	if c.CoachMaxHistory < 1 {
		errors = append(errors, fmt.Sprintf("invalid coach max history %d: must be at least 1", c.CoachMaxHistory))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// CoachEnabled reports whether an API key for the model is configured
func (c *Config) CoachEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
