package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	OllamaBaseURL   string
	OllamaModel     string
	OllamaTimeoutMs int
	RowDelayMs      int

	WatchInboxDir     string
	WatchIntervalSec  int
	WatchProcessBatch int
	WatchAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.1"),
		OllamaTimeoutMs: getEnvInt("OLLAMA_TIMEOUT_MS", 120000),
		RowDelayMs:      getEnvInt("ROW_DELAY_MS", 300),

		WatchInboxDir:     getEnv("WATCH_INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		WatchIntervalSec:  getEnvInt("WATCH_INTERVAL_SEC", 30),
		WatchProcessBatch: getEnvInt("WATCH_PROCESS_BATCH", 50),
		WatchAutoExport:   getEnvBool("WATCH_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
