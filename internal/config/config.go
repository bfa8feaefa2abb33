/**
 * Configuration for the PDF extractor
 *
 * Loads configuration from environment variables (optionally seeded from
 * .env.pdfextractor) and calibration profiles from a YAML file.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is the dotenv file loaded by LoadDotEnv.
const EnvFile = ".env.pdfextractor"

// Config holds service and worker configuration
type Config struct {
	// HTTP server
	Port   string
	Mode   string
	APIKey string

	// Redis configuration (queue + results). Empty disables async jobs.
	RedisURL string

	// PostgreSQL configuration. Empty disables job persistence.
	DatabaseURL string

	// Queue configuration
	QueueName         string
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds
	ResultTTLHours    int

	// Input limits
	MaxFileSize int64

	// Reconstruction defaults (the "default" calibration profile)
	RenderDPI     int
	LineTolerance float64
	MinConfidence float64
	SpaceRatio    float64

	// Pipeline
	PageConcurrency int

	// OCR engines
	DefaultEngine      string
	TesseractLanguages string
	TesseractPoolSize  int
	RemoteOCRURL       string
	RemoteOCREngine    string
	RemoteOCRTimeout   int // milliseconds

	// Calibration profiles file (YAML). Optional.
	CalibrationFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadDotEnv loads EnvFile into the process environment. A missing file is
// reported but is not fatal.
func LoadDotEnv() error {
	return godotenv.Load(EnvFile)
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "5003"),
		Mode:               getEnvOrDefault("MODE", "release"),
		APIKey:             getEnvOrDefault("API_KEY", ""),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:        getEnvOrDefault("DATABASE_URL", ""),
		QueueName:          getEnvOrDefault("QUEUE_NAME", "pdfextractor:jobs"),
		WorkerConcurrency:  getEnvAsIntOrDefault("WORKER_CONCURRENCY", 2),
		ProcessingTimeout:  getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes
		ResultTTLHours:     getEnvAsIntOrDefault("RESULT_TTL_HOURS", 24),
		MaxFileSize:        getEnvAsInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB
		RenderDPI:          getEnvAsIntOrDefault("RENDER_DPI", 144),                // zoom 2.0
		LineTolerance:      getEnvAsFloatOrDefault("LINE_TOLERANCE", 15),
		MinConfidence:      getEnvAsFloatOrDefault("MIN_CONFIDENCE", 30),
		SpaceRatio:         getEnvAsFloatOrDefault("SPACE_RATIO", 0.4),
		PageConcurrency:    getEnvAsIntOrDefault("PAGE_CONCURRENCY", 4),
		DefaultEngine:      getEnvOrDefault("DEFAULT_ENGINE", "tesseract"),
		TesseractLanguages: getEnvOrDefault("TESSERACT_LANGUAGES", "por+eng"),
		TesseractPoolSize:  getEnvAsIntOrDefault("TESSERACT_POOL_SIZE", 2),
		RemoteOCRURL:       getEnvOrDefault("REMOTE_OCR_URL", ""),
		RemoteOCREngine:    getEnvOrDefault("REMOTE_OCR_ENGINE", "paddle"),
		RemoteOCRTimeout:   getEnvAsIntOrDefault("REMOTE_OCR_TIMEOUT", 300000),
		CalibrationFile:    getEnvOrDefault("CALIBRATION_FILE", ""),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Mode != "debug" && c.Mode != "release" && c.Mode != "test" {
		return fmt.Errorf("MODE must be debug, release or test, got %q", c.Mode)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.PageConcurrency < 1 || c.PageConcurrency > 64 {
		return fmt.Errorf("PAGE_CONCURRENCY must be between 1 and 64, got %d", c.PageConcurrency)
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 1GB, got %d", c.MaxFileSize)
	}

	if c.TesseractPoolSize < 1 {
		return fmt.Errorf("TESSERACT_POOL_SIZE must be positive, got %d", c.TesseractPoolSize)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	return c.DefaultProfile().Validate()
}

// ProcessingTimeoutDuration returns ProcessingTimeout as a duration.
func (c *Config) ProcessingTimeoutDuration() time.Duration {
	return time.Duration(c.ProcessingTimeout) * time.Millisecond
}

// RemoteOCRTimeoutDuration returns RemoteOCRTimeout as a duration.
func (c *Config) RemoteOCRTimeoutDuration() time.Duration {
	return time.Duration(c.RemoteOCRTimeout) * time.Millisecond
}

// ResultTTL returns how long finished workbooks stay in Redis.
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLHours) * time.Hour
}

// QueueEnabled reports whether async jobs can be used.
func (c *Config) QueueEnabled() bool {
	return c.RedisURL != ""
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
