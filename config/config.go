package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

// Config holds everything the client reads from the environment.
type Config struct {
	APIBaseURL      string
	NATSURL         string
	JWTSecret       string
	SessionToken    string
	LogFile         string
	RefreshInterval time.Duration
}

// Load reads an optional .env file and then the environment. A missing .env
// is not fatal: in containers the variables arrive through the environment
// directly.
func Load(path string) *Config {
	if path != "" {
		_ = godotenv.Load(path)
	}

	return &Config{
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:5000/api"),
		NATSURL:         getEnv("NATS_URL", nats.DefaultURL),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SessionToken:    os.Getenv("SESSION_TOKEN"),
		LogFile:         getEnv("LOG_FILE", "logs/sync-client.log"),
		RefreshInterval: getEnvSeconds("REFRESH_INTERVAL", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
