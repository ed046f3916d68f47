package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LLMConfig holds settings for the completion endpoint used for metadata
// extraction and query translation. The endpoint must be OpenAI-compatible;
// Groq is the default provider.
type LLMConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	TimeoutSec int
}

// OCRConfig holds settings for PDF rendering and text extraction.
// TruncateChars bounds how much of the recognized text is handed to the
// metadata extractor; header metadata is front-loaded on a title page.
type OCRConfig struct {
	DPI           int
	MaxPages      int
	TruncateChars int
	DebugImages   bool
	DebugDir      string
}

// AppConfig is the centralized configuration struct for the application.
// It is constructed once at startup and passed by reference into component
// constructors; pipeline code never reads the process environment directly.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	LLM      LLMConfig
	OCR      OCRConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		LLM: LLMConfig{
			BaseURL:    getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:     getEnv("LLM_API_KEY", ""),
			Model:      getEnv("LLM_MODEL", "openai/gpt-oss-20b"),
			TimeoutSec: getEnvInt("LLM_TIMEOUT_SEC", 30),
		},
		OCR: OCRConfig{
			DPI:           getEnvInt("OCR_DPI", 300),
			MaxPages:      getEnvInt("OCR_MAX_PAGES", 1),
			TruncateChars: getEnvInt("OCR_TRUNCATE_CHARS", 600),
			DebugImages:   getEnvBool("OCR_DEBUG_IMAGES", false),
			DebugDir:      getEnv("OCR_DEBUG_DIR", "debug"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
