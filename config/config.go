package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server ServerConfig
	Poll   PollConfig
	Chat   ChatConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// PollConfig bounds the lifetime of a poll.
type PollConfig struct {
	MinSeconds     int // lowest accepted max_time on create-poll
	MaxSeconds     int // highest accepted max_time on create-poll
	DefaultSeconds int // substituted when max_time is omitted (0)
}

// ChatConfig bounds chat input.
type ChatConfig struct {
	MaxMessageLen int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Poll: PollConfig{
			MinSeconds:     getEnvInt("POLL_MIN_SECONDS", 10),
			MaxSeconds:     getEnvInt("POLL_MAX_SECONDS", 300),
			DefaultSeconds: getEnvInt("POLL_DEFAULT_SECONDS", 60),
		},
		Chat: ChatConfig{
			MaxMessageLen: getEnvInt("CHAT_MAX_MESSAGE_LEN", 500),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
