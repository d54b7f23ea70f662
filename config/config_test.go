package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Load())

	cfg := MustGet()
	assert.Equal(t, "url-fetcher", cfg.ServiceName)
	assert.Equal(t, "local", cfg.Environment)
	assert.False(t, cfg.IsProduction())

	assert.True(t, cfg.Fetch.FollowRedirects)
	assert.Equal(t, domain.DefaultMaxRedirects, cfg.Fetch.MaxRedirects)
	assert.Equal(t, int64(domain.DefaultMaxSizeBytes), cfg.Fetch.MaxSizeBytes)
	assert.Equal(t, 10*time.Second, cfg.Fetch.OpenTimeout)

	assert.Equal(t, "fs", cfg.Storage.Provider)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadFromEnvironment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("SERVICE_NAME", "fetcher-test")
	t.Setenv("FETCH_MAX_REDIRECTS", "9")
	t.Setenv("FETCH_MAX_SIZE_BYTES", "2048")
	t.Setenv("FETCH_READ_TIMEOUT", "5s")
	t.Setenv("STORAGE_PROVIDER", "s3")
	t.Setenv("STORAGE_BUCKET", "my-captures")

	require.NoError(t, Load())

	cfg := MustGet()
	assert.Equal(t, "fetcher-test", cfg.ServiceName)
	assert.Equal(t, 9, cfg.Fetch.MaxRedirects)
	assert.Equal(t, int64(2048), cfg.Fetch.MaxSizeBytes)
	assert.Equal(t, 5*time.Second, cfg.Fetch.ReadTimeout)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "my-captures", cfg.Storage.Bucket)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage provider", func(c *Config) { c.Storage.Provider = "gcs" }},
		{"s3 without bucket", func(c *Config) {
			c.Storage.Provider = "s3"
			c.Storage.Bucket = ""
		}},
		{"negative redirects", func(c *Config) { c.Fetch.MaxRedirects = -1 }},
		{"zero size limit", func(c *Config) { c.Fetch.MaxSizeBytes = 0 }},
		{"insecure tls in production", func(c *Config) {
			c.Environment = "production"
			c.Fetch.InsecureSkipVerify = true
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := parse()
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFetchOptions(t *testing.T) {
	fc := FetchConfig{
		FollowRedirects: false,
		MaxRedirects:    7,
		MaxSizeBytes:    4096,
		OpenTimeout:     time.Second,
		ReadTimeout:     2 * time.Second,
		UserAgent:       "crawler/2.0",
	}

	opts := fc.Options()
	assert.False(t, opts.FollowRedirects)
	assert.Equal(t, 7, opts.MaxRedirects)
	assert.Equal(t, int64(4096), opts.MaxSizeBytes)
	assert.Equal(t, time.Second, opts.OpenTimeout)
	assert.Equal(t, "crawler/2.0", opts.Headers.Get("User-Agent"))
	assert.Equal(t, domain.MethodGet, opts.Method)
}

func TestGetBeforeLoad(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, err := Get()
	assert.Error(t, err)
}
