package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig
	Server ServerConfig
	OCR    OCRConfig
	Queue  QueueConfig
	Log    LogConfig
}

// StoreConfig holds persistence configuration
type StoreConfig struct {
	Location        string // SQLite path or postgres:// DSN
	InsertStatement string // parameterized insert, four placeholders in column order
	EnsureSchema    bool
	PatternsFile    string // empty -> embedded pattern set
}

// ServerConfig holds listener configuration for the daemon
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
	WatchDir string
}

// OCRConfig holds decoder configuration
type OCRConfig struct {
	TesseractLang string
	DPI           int
	TessdataDir   string
	HeicConverter string
	Timeout       time.Duration
}

// QueueConfig sizes the document worker pool
type QueueConfig struct {
	Workers    int
	Size       int
	JobTimeout time.Duration // 0 = jobs run without a deadline
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ConfigError("read .env", err)
	}
	return &Config{
		Store: StoreConfig{
			Location:        getEnv("INVOICE_STORE_LOCATION", ""),
			InsertStatement: getEnv("INVOICE_INSERT_STATEMENT", ""),
			EnsureSchema:    getEnvAsBool("INVOICE_ENSURE_SCHEMA", true),
			PatternsFile:    getEnv("INVOICE_PATTERNS_FILE", ""),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
			WatchDir: getEnv("WATCH_DIR", ""),
		},
		OCR: OCRConfig{
			TesseractLang: getEnv("OCR_TESSERACT_LANG", "ell+eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			HeicConverter: getEnv("OCR_HEIC_CONVERTER", ""),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 0),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("QUEUE_WORKERS", 2),
			Size:       getEnvAsInt("QUEUE_SIZE", 64),
			JobTimeout: getEnvAsDuration("QUEUE_JOB_TIMEOUT", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks the options without which the process must not start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Location) == "" {
		return ConfigError("INVOICE_STORE_LOCATION is required", nil)
	}
	if strings.TrimSpace(c.Store.InsertStatement) == "" {
		return ConfigError("INVOICE_INSERT_STATEMENT is required", nil)
	}
	return nil
}

// NewLogger builds the process logger from LogConfig.
func NewLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
