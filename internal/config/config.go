// Package config provides configuration for the backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Agent settings
	AgentURL     string
	AgentAPIKey  string
	AgentModel   string
	AgentTimeout time.Duration

	// Session manager
	SessionIdleTTL  time.Duration
	SessionCapacity int

	// WebSocket settings
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:     getEnv("DATABASE_URL", "file:agentick.db?cache=shared&mode=rwc&_foreign_keys=on"),
		JWTSecret:       getEnv("SECRET_KEY", "dev-secret-change-me"),
		TokenTTL:        time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		AgentURL:        getEnv("AGENT_URL", "https://api.openai.com/v1"),
		AgentAPIKey:     getEnv("AGENT_API_KEY", ""),
		AgentModel:      getEnv("AGENT_MODEL", "gpt-4"),
		AgentTimeout:    time.Duration(getEnvInt("AGENT_TIMEOUT_MS", 60000)) * time.Millisecond,
		SessionIdleTTL:  time.Duration(getEnvInt("SESSION_IDLE_TTL_MS", 1800000)) * time.Millisecond,
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 1024),
		ReadTimeout:     time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 300000)) * time.Millisecond,
		WriteTimeout:    time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		PingInterval:    time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		MaxMessageSize:  int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
