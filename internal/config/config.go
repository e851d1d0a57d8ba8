package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const dbFileName = "workqueue.db"

type Config struct {
	BotToken string
	DataDir  string
}

// Load reads configuration from the environment, with an optional .env file
// filling in anything not already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return Config{}, errors.New("config: TELEGRAM_BOT_TOKEN is required")
	}
	return Config{
		BotToken: token,
		DataDir:  envOrDefault("DATA_DIR", "."),
	}, nil
}

func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
