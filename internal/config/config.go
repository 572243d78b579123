package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration
type Config struct {
	Port     string
	MongoURI string
	MongoDB  string
	RedisURI string

	// SessionIdleTimeout is how long an ongoing session may sit without
	// activity before the reaper finalizes it
	SessionIdleTimeout time.Duration
	// ReaperInterval is how often the reaper scans for stale sessions
	ReaperInterval time.Duration
}

// Load reads configuration from the environment. A .env file is applied
// first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		MongoURI:           getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getEnvOrDefault("MONGO_DB", "interviewai"),
		RedisURI:           getEnvOrDefault("REDIS_URI", "localhost:6379"),
		SessionIdleTimeout: getDurationOrDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ReaperInterval:     getDurationOrDefault("REAPER_INTERVAL", 5*time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
