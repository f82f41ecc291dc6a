package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer          string        // Issuer claim for minted tokens (default: quill-blog)
	TokenSecretFile string        // Path to the HMAC signing secret (generated if absent)
	TokenTTL        time.Duration // Lifetime of minted tokens (default: 1h)
	TokenReissue    bool          // Attach a fresh token to authenticated responses

	DatabaseFile string // Path to SQLite database file (default: ./blog.db)
	PepperFile   string // Path to password hashing pepper file (default: ./pepper)

	Bucket        string        // Object storage bucket; empty selects the in-memory store
	S3Region      string        // Bucket region
	S3Endpoint    string        // Optional override for S3-compatible stores (MinIO)
	S3AccessKey   string        // Static credentials; empty falls back to the provider chain
	S3SecretKey   string        //
	S3Timeout     time.Duration // Per-call deadline (default: 10s)
	S3MaxAttempts int           // Max attempts per call (default: 3)

	FileScopedKeys     bool // Prefix object keys with the post id (default: true)
	FileDeleteMetadata bool // Drop attachment rows when the blob is deleted (default: false)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:          getEnvOrDefault("BLOG_ISSUER", "quill-blog"),
		TokenSecretFile: getEnvOrDefault("BLOG_TOKEN_SECRET_FILE", "token.secret"),
		TokenTTL:        getEnvDurationOrDefault("BLOG_TOKEN_TTL", time.Hour),
		TokenReissue:    getEnvBoolOrDefault("BLOG_TOKEN_REISSUE", false),

		DatabaseFile: getEnvOrDefault("BLOG_DATABASE_FILE", "blog.db"),
		PepperFile:   getEnvOrDefault("BLOG_PEPPER_FILE", "pepper"),

		Bucket:        os.Getenv("BLOG_BUCKET"),
		S3Region:      getEnvOrDefault("BLOG_S3_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("BLOG_S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("BLOG_S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("BLOG_S3_SECRET_KEY"),
		S3Timeout:     getEnvDurationOrDefault("BLOG_S3_TIMEOUT", 10*time.Second),
		S3MaxAttempts: getEnvIntOrDefault("BLOG_S3_MAX_ATTEMPTS", 3),

		FileScopedKeys:     getEnvBoolOrDefault("BLOG_FILE_SCOPED_KEYS", true),
		FileDeleteMetadata: getEnvBoolOrDefault("BLOG_FILE_DELETE_METADATA", false),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
