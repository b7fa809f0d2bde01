package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Catalog      CatalogConfig
	Auth         AuthConfig
	AWS          AWSConfig
	MediaConvert MediaConvertConfig
	Webhook      WebhookConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	// RunWorker drains the completion queue inside the server process.
	// Always on with the memory catalog, which cannot be shared with cmd/worker.
	RunWorker bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/vod?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CatalogConfig selects the catalog backend and the CDN used to build rendition URLs.
type CatalogConfig struct {
	Backend          string // postgres | memory
	CloudFrontDomain string
}

// AuthConfig holds bearer token verification settings.
// With JWKSURL set tokens must be RS256 signed by the identity provider;
// otherwise HMACSecret is used (local development only).
type AuthConfig struct {
	UserPoolID string
	Issuer     string
	ClientID   string
	JWKSURL    string
	HMACSecret string
	AdminGroup string
	// TierCacheTTLSec caches resolved subscription tiers in Redis; 0 disables the cache.
	TierCacheTTLSec int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	InputBucket          string
	OutputBucket         string
	PresignExpireMinutes int
}

// MediaConvertConfig holds job submission settings.
type MediaConvertConfig struct {
	Endpoint string
	Role     string
	Queue    string
}

// WebhookConfig holds inbound webhook settings.
type WebhookConfig struct {
	Secret string // HMAC-SHA256 key for X-Webhook-Signature; empty disables verification
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			RunWorker:          getEnvBool("RUN_WORKER", false),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "vod"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			Backend:          strings.ToLower(getEnv("CATALOG_BACKEND", "postgres")),
			CloudFrontDomain: getEnv("CLOUDFRONT_DOMAIN", ""),
		},
		Auth: AuthConfig{
			UserPoolID:      getEnv("USER_POOL_ID", ""),
			Issuer:          getEnv("COGNITO_ISSUER", ""),
			ClientID:        getEnv("COGNITO_CLIENT_ID", ""),
			JWKSURL:         getEnv("COGNITO_JWKS_URL", ""),
			HMACSecret:      getEnv("JWT_SECRET", ""),
			AdminGroup:      getEnv("ADMIN_GROUP", "admin"),
			TierCacheTTLSec: getEnvInt("TIER_CACHE_TTL_SEC", 60),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			InputBucket:          getEnv("INPUT_BUCKET", ""),
			OutputBucket:         getEnv("OUTPUT_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		MediaConvert: MediaConvertConfig{
			Endpoint: getEnv("MEDIACONVERT_ENDPOINT", ""),
			Role:     getEnv("MEDIACONVERT_ROLE", ""),
			Queue:    getEnv("MEDIACONVERT_QUEUE", ""),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
	}

	// Derive issuer and key set from the user pool when only the pool id is given.
	if cfg.Auth.Issuer == "" && cfg.Auth.UserPoolID != "" {
		cfg.Auth.Issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.AWS.Region, cfg.Auth.UserPoolID)
	}
	if cfg.Auth.JWKSURL == "" && cfg.Auth.Issuer != "" {
		cfg.Auth.JWKSURL = cfg.Auth.Issuer + "/.well-known/jwks.json"
	}

	if cfg.Catalog.Backend == "memory" {
		cfg.Server.RunWorker = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.Backend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("CATALOG_BACKEND must be postgres or memory, got %q", c.Catalog.Backend)
	}
	if c.Auth.JWKSURL == "" && c.Auth.HMACSecret == "" {
		return fmt.Errorf("either COGNITO_JWKS_URL (or USER_POOL_ID) or JWT_SECRET must be set")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
