package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shelfwise/receiptscan/internal/models"
)

type Config struct {
	// Server
	Port           string
	AllowedOrigins string

	// Environment
	Environment string

	// OCR
	OcrLanguage string
	OcrPoolSize int
	OcrTimeout  time.Duration

	// Pipeline
	PreprocessLevel string
	ValidateUploads bool

	// Uploads
	MaxUploadBytes int64
	MinImageWidth  int
	MinImageHeight int
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "*"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		OcrLanguage:     getEnv("OCR_LANGUAGE", "eng"),
		OcrPoolSize:     getIntEnv("OCR_POOL_SIZE", 2),
		OcrTimeout:      getDurationEnv("OCR_TIMEOUT_SECONDS", 30) * time.Second,
		PreprocessLevel: getEnv("PREPROCESS_LEVEL", "standard"),
		ValidateUploads: getBoolEnv("VALIDATE_UPLOADS", true),
		MaxUploadBytes:  getInt64Env("MAX_UPLOAD_SIZE_MB", 20) * 1024 * 1024,
		MinImageWidth:   getIntEnv("MIN_IMAGE_WIDTH", 300),
		MinImageHeight:  getIntEnv("MIN_IMAGE_HEIGHT", 300),
	}
}

// Constraints builds the validation constraints for uploaded images,
// starting from the stock thresholds and applying the configured
// overrides.
func (c *Config) Constraints() models.ValidationConstraints {
	constraints := models.DefaultConstraints()
	constraints.MinWidth = c.MinImageWidth
	constraints.MinHeight = c.MinImageHeight
	constraints.MaxFileSizeBytes = c.MaxUploadBytes
	return constraints
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
	}
	return time.Duration(defaultValue)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
