package config

import (
	"fmt"
	"os"
	"strconv"

	"billbook/internal/billcode"
	"billbook/internal/logger"
	"billbook/internal/notify"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	// Ledger Storage Configuration
	LedgerBackend   string
	LedgerStorePath string
	DatabaseURL     string

	// QR Code Configuration
	QROutputDir  string
	QRForeground string
	QRBackground string
	QRSize       string

	// Email Notification Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Metrics Configuration
	MetricsFile string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		LedgerBackend:        getEnv("LEDGER_BACKEND", BackendFile),
		LedgerStorePath:      getEnv("LEDGER_STORE_PATH", "bills.json"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		QROutputDir:          getEnv("QR_OUTPUT_DIR", "."),
		QRForeground:         getEnv("QR_FOREGROUND", "black"),
		QRBackground:         getEnv("QR_BACKGROUND", "white"),
		QRSize:               getEnv("QR_SIZE", strconv.Itoa(billcode.DefaultSize)),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnv("SMTP_PORT", "587"),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:             getEnv("SMTP_FROM", ""),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Bills"),
		MetricsFile:          getEnv("METRICS_FILE", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.LedgerBackend {
	case BackendFile:
		if c.LedgerStorePath == "" {
			return fmt.Errorf("LEDGER_STORE_PATH is required for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendFile, BackendPostgres, c.LedgerBackend)
	}
	if _, err := strconv.Atoi(c.QRSize); err != nil {
		return fmt.Errorf("QR_SIZE must be an integer: %w", err)
	}
	if _, err := strconv.Atoi(c.SMTPPort); err != nil {
		return fmt.Errorf("SMTP_PORT must be an integer: %w", err)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetEncoderConfig returns the QR code rendering configuration
func (c *Config) GetEncoderConfig() billcode.Config {
	size, _ := strconv.Atoi(c.QRSize)
	return billcode.Config{
		Foreground: c.QRForeground,
		Background: c.QRBackground,
		Size:       size,
		OutputDir:  c.QROutputDir,
	}
}

// GetSMTPConfig returns the email notifier configuration
func (c *Config) GetSMTPConfig() notify.SMTPConfig {
	port, _ := strconv.Atoi(c.SMTPPort)
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     port,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
