package configs

import (
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ops      OpsConfig
}

// ServerConfig holds the trading terminal listener configuration
type ServerConfig struct {
	Host string
	Port string
	// ReadTimeoutSeconds bounds each blocking read on a client connection.
	// Zero disables the deadline, matching the reference protocol.
	ReadTimeoutSeconds int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// OpsConfig holds the operational HTTP endpoint configuration
type OpsConfig struct {
	Port string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               getEnv("HOST", "localhost"),
			Port:               getEnv("PORT", "8100"),
			ReadTimeoutSeconds: getEnvInt("READ_TIMEOUT_SECONDS", 0),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Ops: OpsConfig{
			Port: getEnv("OPS_PORT", "8180"),
		},
	}
}

// Addr returns the host:port the trading terminal listens on
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
