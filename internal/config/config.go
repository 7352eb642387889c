package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes
const (
	AuthModeAuthorizer = "authorizer"
	AuthModeJWT        = "jwt"
	AuthModeNone       = "none"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port           string
	MaxUploadBytes int
	CORSOrigins    string

	// Database configuration
	DBType            string // mongodb, mysql, postgres, sqlite, sqlserver, memory
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	StoreTimeout      time.Duration

	// MongoDB configuration
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Authentication
	AuthMode         string
	AuthzURL         string
	AuthzClientID    string
	AuthzRedirectURL string
	AuthzCookie      string
	JWTSecret        string
	JWTCookie        string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadEnvFile loads variables from an .env file into the process environment.
// An empty path tries ./.env and ignores its absence.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	return godotenv.Load(path)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		MaxUploadBytes:    getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		DBType:            strings.ToLower(getEnv("DB_TYPE", "mongodb")),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		StoreTimeout:      time.Duration(getEnvAsInt("STORE_TIMEOUT_MS", 5000)) * time.Millisecond,
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "booksdb"),
		MongoCollection:   getEnv("MONGO_COLLECTION", "users"),
		AuthMode:          strings.ToLower(getEnv("AUTH_MODE", AuthModeAuthorizer)),
		AuthzURL:          getEnv("AUTHZ_URL", ""),
		AuthzClientID:     getEnv("AUTHZ_CLIENT_ID", ""),
		AuthzRedirectURL:  getEnv("AUTHZ_REDIRECT_URL", ""),
		AuthzCookie:       getEnv("AUTHZ_COOKIE", "cookie_session"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTCookie:         getEnv("JWT_COOKIE", "token"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.DBType {
	case "mongodb", "mongo":
		cfg.DBType = "mongodb"
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case "mysql", "mariadb", "postgres", "postgresql", "sqlite", "sqlserver", "mssql":
		if cfg.DBDatabase == "" {
			return fmt.Errorf("DB_DATABASE is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}

	switch cfg.AuthMode {
	case AuthModeAuthorizer:
		if cfg.AuthzURL == "" {
			return fmt.Errorf("AUTHZ_URL is required")
		}
		if cfg.AuthzClientID == "" {
			return fmt.Errorf("AUTHZ_CLIENT_ID is required")
		}
	case AuthModeJWT:
		if len(cfg.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters")
		}
	case AuthModeNone:
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.AuthMode)
	}

	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_MS must be positive")
	}

	return nil
}

// Origins returns the configured CORS origins as a list
func (cfg *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(cfg.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
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
