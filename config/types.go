package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Component configurations
	Fetch    FetchConfig
	Sink     SinkConfig
	Storage  StorageConfig
	Handler  HandlerConfig
	HTTP     HTTPConfig
	RabbitMQ RabbitMQConfig
	Lambda   LambdaConfig
}

// FetchConfig holds the default fetch behavior. Individual jobs may
// override parts of it.
type FetchConfig struct {
	FollowRedirects    bool
	MaxRedirects       int
	MaxSizeBytes       int64
	OpenTimeout        time.Duration
	ReadTimeout        time.Duration
	UserAgent          string
	InsecureSkipVerify bool
}

// Options converts the fetch defaults into domain options.
func (c FetchConfig) Options() domain.Options {
	opts := domain.DefaultOptions()
	opts.FollowRedirects = c.FollowRedirects
	if c.MaxRedirects > 0 {
		opts.MaxRedirects = c.MaxRedirects
	}
	if c.MaxSizeBytes > 0 {
		opts.MaxSizeBytes = c.MaxSizeBytes
	}
	if c.OpenTimeout > 0 {
		opts.OpenTimeout = c.OpenTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.UserAgent != "" {
		opts.Headers = http.Header{}
		opts.Headers.Set("User-Agent", c.UserAgent)
	}
	return opts
}

// SinkConfig holds temp-file sink configuration
type SinkConfig struct {
	Dir    string // empty means the OS temp directory
	Unlink bool   // unlink temp files right after creation
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Provider   string // "fs" or "s3"
	Bucket     string
	BasePath   string // fs provider only
	MaxRetries int
	Timeout    time.Duration
	S3         S3Config
}

// S3Config holds S3-specific settings
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// HandlerConfig holds request handler configuration
type HandlerConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableHealth   bool
	EnableMetrics  bool
	Platform       string // auto-detected if empty
}

// HTTPConfig holds the HTTP platform server configuration
type HTTPConfig struct {
	Addr string
}

// RabbitMQConfig holds the RabbitMQ platform configuration
type RabbitMQConfig struct {
	URL           string
	Queue         string
	PrefetchCount int
	Timeout       time.Duration
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	EnablePartialBatchFailure bool
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []string

	if c.ServiceName == "" {
		errs = append(errs, "SERVICE_NAME is required")
	}

	switch c.Storage.Provider {
	case "fs", "s3":
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_PROVIDER must be fs or s3, got %q", c.Storage.Provider))
	}
	if c.Storage.Provider == "s3" && c.Storage.Bucket == "" {
		errs = append(errs, "STORAGE_BUCKET is required for the s3 provider")
	}

	if c.Fetch.MaxRedirects < 0 {
		errs = append(errs, "FETCH_MAX_REDIRECTS must not be negative")
	}
	if c.Fetch.MaxSizeBytes <= 0 {
		errs = append(errs, "FETCH_MAX_SIZE_BYTES must be positive")
	}

	if c.IsProduction() && c.Fetch.InsecureSkipVerify {
		errs = append(errs, "FETCH_INSECURE_SKIP_VERIFY must not be set in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
