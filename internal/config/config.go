package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Backend endpoints, used as given
	APIBaseURL string `env:"API_BASE_URL" default:"http://localhost:8080"`
	WSBaseURL  string `env:"WS_BASE_URL" default:"ws://localhost:8080"`

	// Client behaviour
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" default:"10s"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" default:"5s"`

	// Session
	AuthToken string `env:"AUTH_TOKEN"`

	// Alerts
	AlertsEnabled bool    `env:"ALERTS_ENABLED" default:"true"`
	AlertSound    bool    `env:"ALERT_SOUND" default:"true"`
	AlertRate     float64 `env:"ALERT_RATE" default:"1"`
	AlertBurst    int     `env:"ALERT_BURST" default:"3"`

	// Redis, optional; empty URL disables selection persistence
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Dev server
	DevServerPort int    `env:"DEVSERVER_PORT" default:"8080"`
	DevJWTSecret  string `env:"DEV_JWT_SECRET" default:"terapiahub-dev-secret"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is fine; system env vars still apply
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env file: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Endpoints
	if err := loadEnvString(&config.APIBaseURL, "API_BASE_URL", "http://localhost:8080"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.WSBaseURL, "WS_BASE_URL", "ws://localhost:8080"); err != nil {
		return nil, err
	}

	// Client behaviour
	if err := loadEnvDuration(&config.HTTPTimeout, "HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ReconnectDelay, "RECONNECT_DELAY", 5*time.Second); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.AuthToken, "AUTH_TOKEN", ""); err != nil {
		return nil, err
	}

	// Alerts
	if err := loadEnvBool(&config.AlertsEnabled, "ALERTS_ENABLED", true); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.AlertSound, "ALERT_SOUND", true); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.AlertRate, "ALERT_RATE", 1); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.AlertBurst, "ALERT_BURST", 3); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}

	// Dev server
	if err := loadEnvInt(&config.DevServerPort, "DEVSERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.DevJWTSecret, "DEV_JWT_SECRET", "terapiahub-dev-secret"); err != nil {
		return nil, err
	}

	// Logging
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate checks the values the binaries depend on. Endpoint URLs are not
// checked; they are passed to the client as given.
func (c *Config) Validate() error {
	var errors []string

	if c.DevServerPort < 1 || c.DevServerPort > 65535 {
		errors = append(errors, "DEVSERVER_PORT must be between 1 and 65535")
	}
	if c.HTTPTimeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if c.ReconnectDelay <= 0 {
		errors = append(errors, "RECONNECT_DELAY must be positive")
	}
	// a zero rate would let the burst through once and then mute alerts for good
	if c.AlertsEnabled && c.AlertRate <= 0 {
		errors = append(errors, "ALERT_RATE must be positive; set ALERTS_ENABLED=false to turn alerts off")
	}
	if c.AlertBurst < 1 {
		errors = append(errors, "ALERT_BURST must be at least 1")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
