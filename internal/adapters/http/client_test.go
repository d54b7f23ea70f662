package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
	"github.com/weheartit/whi-url-fetcher/observability"
)

func newTestClient(cfg Config) *Client {
	logger, metrics := observability.Nop()
	return NewClient(cfg, logger, metrics)
}

func testOptions() domain.Options {
	opts := domain.DefaultOptions()
	opts.OpenTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	return opts
}

func TestClient_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the raw response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "pong")
		}))
		defer server.Close()

		client := newTestClient(Config{})
		ex, err := client.Exchange(ctx, domain.MethodGet, server.URL, nil, testOptions())

		require.NoError(t, err)
		defer ex.Body.Close()
		assert.Equal(t, http.StatusOK, ex.StatusCode)
		assert.Equal(t, "text/plain", ex.Headers.Get("Content-Type"))
		assert.Equal(t, int64(4), ex.ContentLength)

		body, err := io.ReadAll(ex.Body)
		require.NoError(t, err)
		assert.Equal(t, "pong", string(body))
	})

	t.Run("never follows redirects on its own", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
		}))
		defer server.Close()

		client := newTestClient(Config{})
		ex, err := client.Exchange(ctx, domain.MethodGet, server.URL, nil, testOptions())

		require.NoError(t, err)
		defer ex.Body.Close()
		assert.Equal(t, http.StatusFound, ex.StatusCode)
		assert.Equal(t, "/elsewhere", ex.Headers.Get("Location"))
		assert.Equal(t, 1, requests)
	})

	t.Run("sends repeated header values in order", func(t *testing.T) {
		var received []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received = r.Header.Values("X-Forwarded-Tag")
		}))
		defer server.Close()

		headers := http.Header{}
		headers.Add("X-Forwarded-Tag", "first")
		headers.Add("X-Forwarded-Tag", "second")
		headers.Add("X-Forwarded-Tag", "third")

		client := newTestClient(Config{})
		ex, err := client.Exchange(ctx, domain.MethodGet, server.URL, headers, testOptions())

		require.NoError(t, err)
		ex.Body.Close()
		assert.Equal(t, []string{"first", "second", "third"}, received)
	})

	t.Run("default user agent is sent and caller headers win", func(t *testing.T) {
		var agent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent = r.UserAgent()
		}))
		defer server.Close()

		client := newTestClient(Config{})
		ex, err := client.Exchange(ctx, domain.MethodGet, server.URL, nil, testOptions())
		require.NoError(t, err)
		ex.Body.Close()
		assert.Equal(t, defaultUserAgent, agent)

		headers := http.Header{}
		headers.Set("User-Agent", "custom-crawler/2.0")
		ex, err = client.Exchange(ctx, domain.MethodGet, server.URL, headers, testOptions())
		require.NoError(t, err)
		ex.Body.Close()
		assert.Equal(t, "custom-crawler/2.0", agent)
	})

	t.Run("HEAD requests use the HEAD verb", func(t *testing.T) {
		var method string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
		}))
		defer server.Close()

		client := newTestClient(Config{})
		ex, err := client.Exchange(ctx, domain.MethodHead, server.URL, nil, testOptions())
		require.NoError(t, err)
		ex.Body.Close()
		assert.Equal(t, http.MethodHead, method)
	})

	t.Run("TLS verification is enforced unless explicitly disabled", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "secure")
		}))
		defer server.Close()

		strict := newTestClient(Config{})
		_, err := strict.Exchange(ctx, domain.MethodGet, server.URL, nil, testOptions())
		require.Error(t, err, "self-signed certificate must be rejected by default")

		relaxed := newTestClient(Config{InsecureSkipVerify: true})
		ex, err := relaxed.Exchange(ctx, domain.MethodGet, server.URL, nil, testOptions())
		require.NoError(t, err)
		defer ex.Body.Close()
		assert.Equal(t, http.StatusOK, ex.StatusCode)
	})

	t.Run("context cancellation aborts the exchange", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		client := newTestClient(Config{})
		_, err := client.Exchange(cancelCtx, domain.MethodGet, server.URL, nil, testOptions())
		assert.Error(t, err)
	})

	t.Run("slow reads trip the per-read deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			// Never send the body.
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		opts := testOptions()
		opts.ReadTimeout = 100 * time.Millisecond

		client := newTestClient(Config{})
		ex, err := client.Exchange(ctx, domain.MethodGet, server.URL, nil, opts)
		require.NoError(t, err)
		defer ex.Body.Close()

		_, err = io.ReadAll(ex.Body)
		assert.Error(t, err, "stalled body must fail the read deadline")
	})
}
