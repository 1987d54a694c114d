package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	SessionDuration time.Duration
	AccessTokenTTL  time.Duration
	TokenSecret     string
	UploadMaxSize   int64
	Debug           bool

	// Proxies whose X-Forwarded-For / X-Real-IP headers are trusted
	TrustedProxies []string

	// Blob storage for uploaded documents
	BlobDriver        string
	BlobFSRoot        string
	BlobS3Bucket      string
	BlobS3Region      string
	BlobS3Endpoint    string
	BlobS3PathStyle   bool
	BlobPublicBaseURL string
	SignedURLExpiry   time.Duration

	// Email (Amazon SES) for one-time sign-in codes
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	// Federated sign-in
	OAuthRedirectBaseURL string
	AppRedirectURL       string
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	AppleClientID        string
	AppleClientSecret    string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./famhealth.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionDuration: getEnvDuration("SESSION_DURATION", 30*24*time.Hour),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		TokenSecret:     getEnv("TOKEN_SECRET", ""),
		UploadMaxSize:   getEnvInt64("UPLOAD_MAX_SIZE", 20*1024*1024), // 20MB
		Debug:           getEnvBool("DEBUG", false),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),

		BlobDriver:        getEnv("BLOB_DRIVER", "fs"),
		BlobFSRoot:        getEnv("BLOB_FS_ROOT", "./data/documents"),
		BlobS3Bucket:      getEnv("BLOB_S3_BUCKET", ""),
		BlobS3Region:      getEnv("BLOB_S3_REGION", "us-east-1"),
		BlobS3Endpoint:    getEnv("BLOB_S3_ENDPOINT", ""),
		BlobS3PathStyle:   getEnvBool("BLOB_S3_PATH_STYLE", false),
		BlobPublicBaseURL: getEnv("BLOB_PUBLIC_BASE_URL", ""),
		SignedURLExpiry:   getEnvDuration("SIGNED_URL_EXPIRY", 15*time.Minute),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Family Health"),

		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),
		AppRedirectURL:       getEnv("APP_REDIRECT_URL", "famhealth://auth/callback"),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		AppleClientID:        getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:    getEnv("APPLE_CLIENT_SECRET", ""),
	}

	if cfg.TokenSecret == "" && cfg.Debug {
		log.Println("Warning: TOKEN_SECRET not set, using an insecure development secret")
		cfg.TokenSecret = devTokenSecret
	}
	return cfg
}

const devTokenSecret = "dev-insecure-secret"

// Validate reports settings the server cannot run without
func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("TOKEN_SECRET must be set unless DEBUG is enabled")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries
func getEnvList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s: %q", key, value)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Warning: invalid integer for %s: %q", key, value)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s: %q", key, value)
		return defaultValue
	}
	return parsed
}
