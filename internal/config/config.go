package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the dispatch server reads from the environment.
type Config struct {
	ServerAddress string
	PostgresConn  string

	SweepInterval time.Duration

	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServerAddress: getenv("SERVER_ADDRESS", "0.0.0.0:8080"),
		PostgresConn:  getenv("POSTGRES_CONN", ""),
		SweepInterval: getenvDuration("SWEEP_INTERVAL", 5*time.Second),
		LogLevel:      getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// Plain numbers are taken as seconds.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
