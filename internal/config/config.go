// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultBearerToken is the development token used when
// DELTA_SHARING_BEARER_TOKEN is not set. It is rejected in production.
const DefaultBearerToken = "your-secure-bearer-token-here"

// StorageConfig holds the S3-compatible object store settings used for CSV
// delivery.
type StorageConfig struct {
	Endpoint       string        // host:port of the store (MinIO)
	AccessKey      string        // access key id
	SecretKey      string        // secret access key
	Bucket         string        // backing bucket, created lazily
	Region         string        // signing region (MinIO ignores it but SigV4 needs one)
	UseSSL         bool          // https instead of http
	KeyPrefix      string        // prepended to every object key
	ConnectTimeout time.Duration // dial timeout
	ReadTimeout    time.Duration // per-attempt response timeout
	MaxAttempts    int           // total attempts per store call, including the first
}

// EndpointURL returns the base URL of the store including the scheme.
func (s *StorageConfig) EndpointURL() string {
	scheme := "http"
	if s.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + s.Endpoint
}

// Config holds the configuration for the sharing server. It is built once at
// startup and passed into each component.
type Config struct {
	BearerToken   string // shared secret every client presents
	Host          string // listen host (default "0.0.0.0")
	Port          int    // listen port (default 8080)
	PublicBaseURL string // base URL used in file descriptor URLs; derived from the request when empty
	CatalogFile   string // optional YAML catalog; the built-in catalog is used when empty
	SeedDir       string // optional directory of seed CSVs; embedded seed data is used when empty
	MetricsAddr   string // Prometheus listener address; disabled when empty
	LogLevel      string // log level: debug, info, warn, error (default "info")
	Env           string // environment: "development" (default) or "production"

	Storage StorageConfig

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100, 0 disables)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// ListenAddr returns the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables. Variable names
// follow the deployment's container settings (DELTA_SHARING_*, MINIO_*).
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		BearerToken:   os.Getenv("DELTA_SHARING_BEARER_TOKEN"),
		Host:          os.Getenv("DELTA_SHARING_SERVER_HOST"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		CatalogFile:   os.Getenv("CATALOG_FILE"),
		SeedDir:       os.Getenv("SEED_DIR"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
		Storage: StorageConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ROOT_USER"),
			SecretKey: os.Getenv("MINIO_ROOT_PASSWORD"),
			Bucket:    os.Getenv("MINIO_BUCKET_NAME"),
			Region:    os.Getenv("MINIO_REGION"),
			UseSSL:    parseBoolEnvDefault("MINIO_USE_SSL", false),
			KeyPrefix: os.Getenv("STORAGE_KEY_PREFIX"),
		},
	}

	if v := os.Getenv("DELTA_SHARING_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid DELTA_SHARING_SERVER_PORT %q", v)
		}
		cfg.Port = port
	}

	var err error
	if cfg.Storage.ConnectTimeout, err = parseDurationEnv("STORAGE_CONNECT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Storage.ReadTimeout, err = parseDurationEnv("STORAGE_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if v := os.Getenv("STORAGE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid STORAGE_MAX_ATTEMPTS %q", v)
		}
		cfg.Storage.MaxAttempts = n
	}

	// Rate limiting. An explicit RATE_LIMIT_RPS=0 disables the limiter.
	cfg.RateLimitRPS = 100
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", v)
		}
		cfg.RateLimitRPS = f
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q", v)
		}
		cfg.RateLimitBurst = n
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.BearerToken == "" {
		cfg.BearerToken = DefaultBearerToken
		cfg.Warnings = append(cfg.Warnings, "DELTA_SHARING_BEARER_TOKEN not set, using insecure default token")
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = "localhost:9000"
	}
	if cfg.Storage.AccessKey == "" {
		cfg.Storage.AccessKey = "minioadmin"
	}
	if cfg.Storage.SecretKey == "" {
		cfg.Storage.SecretKey = "minioadmin123"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "delta-sharing-data"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.MaxAttempts == 0 {
		cfg.Storage.MaxAttempts = 3
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.BearerToken == DefaultBearerToken {
			return nil, fmt.Errorf("DELTA_SHARING_BEARER_TOKEN must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
