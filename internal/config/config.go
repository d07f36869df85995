package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server config
	Server ServerConfig

	// database config
	Database DatabaseConfig

	// analysis backend config
	Backend BackendConfig

	// object storage config
	Storage StorageConfig

	// CSRF and session config
	Security SecurityConfig

	// background cleanup config
	Cleanup CleanupConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	BaseURL     string
}

// DatabaseConfig holds PostgreSQL connection settings. URL is used as
// given when set, otherwise it is composed from the discrete parts.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// BackendConfig points at the outfit analysis API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StorageConfig holds the MinIO connection settings for photo storage.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret      string
	SessionDuration time.Duration
	SecureCookies   bool // true in production
}

// CleanupConfig controls the background sweep of expired sessions and
// orphaned uploads.
type CleanupConfig struct {
	Interval     time.Duration
	MaxUploadAge time.Duration
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	// This is useful for local development but not required in production
	// where env vars are typically set by the orchestration platform
	_ = godotenv.Load()

	cfg := &Config{}

	// Load server configuration
	cfg.Server = ServerConfig{
		Port:        getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8080"),
	}

	// Load database configuration
	cfg.Database = DatabaseConfig{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnvOrDefault("PG_HOST", "localhost"),
		Port:     getEnvOrDefault("PG_PORT", "5432"),
		User:     getEnvOrDefault("PG_USER", "postgres"),
		Password: os.Getenv("PG_PASSWORD"),
		Name:     getEnvOrDefault("PG_DATABASE", "outfit_evaluator"),
		SSLMode:  getEnvOrDefault("PG_SSLMODE", "disable"),
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port,
			cfg.Database.Name, cfg.Database.SSLMode)
	}

	// Load analysis backend configuration
	backendTimeout, err := strconv.Atoi(getEnvOrDefault("OUTFIT_API_TIMEOUT_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTFIT_API_TIMEOUT_SECONDS: %w", err)
	}
	cfg.Backend = BackendConfig{
		BaseURL: getEnvOrDefault("OUTFIT_API_URL", "http://localhost:8000"),
		Timeout: time.Duration(backendTimeout) * time.Second,
	}

	// Load object storage configuration
	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_USE_SSL: %w", err)
	}
	cfg.Storage = StorageConfig{
		Endpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		Region:    getEnvOrDefault("MINIO_REGION", "us-east-1"),
		Bucket:    getEnvOrDefault("MINIO_BUCKET", "outfit-photos"),
		AccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		UseSSL:    useSSL,
	}

	// Load security configuration
	sessionHours, err := strconv.Atoi(getEnvOrDefault("SESSION_DURATION_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_DURATION_HOURS: %w", err)
	}
	cfg.Security = SecurityConfig{
		CSRFSecret:      os.Getenv("CSRF_SECRET"),
		SessionDuration: time.Duration(sessionHours) * time.Hour,
		SecureCookies:   cfg.Server.Environment == "production",
	}

	// Load cleanup configuration
	cleanupMinutes, err := strconv.Atoi(getEnvOrDefault("CLEANUP_INTERVAL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_INTERVAL_MINUTES: %w", err)
	}
	uploadMaxAge, err := strconv.Atoi(getEnvOrDefault("UPLOAD_MAX_AGE_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_AGE_HOURS: %w", err)
	}
	cfg.Cleanup = CleanupConfig{
		Interval:     time.Duration(cleanupMinutes) * time.Minute,
		MaxUploadAge: time.Duration(uploadMaxAge) * time.Hour,
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
// This implements the "fail fast" principle - better to fail at startup
// than to fail later when a missing config is accessed.
func (c *Config) validate() error {
	var errs []error

	// CSRF secret must be set and sufficiently long
	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	// The analysis backend URL is required for every analysis
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("OUTFIT_API_URL is required"))
	}

	// Object storage settings must be complete
	if c.Storage.Endpoint == "" {
		errs = append(errs, errors.New("MINIO_ENDPOINT is required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("MINIO_BUCKET is required"))
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required"))
	}

	// Validate environment is a known value
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	// Combine all errors
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
