package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/weheartit/whi-url-fetcher/handler"
	"github.com/weheartit/whi-url-fetcher/internal/domain"
	"github.com/weheartit/whi-url-fetcher/internal/sink"
	"github.com/weheartit/whi-url-fetcher/mocks"
	"github.com/weheartit/whi-url-fetcher/observability"
	"github.com/weheartit/whi-url-fetcher/storage/fs"
)

// sha256 of "hello world"
const helloChecksum = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func newWorker(t *testing.T, fetcher Fetcher) (*FetchWorker, *fs.Storage) {
	t.Helper()
	logger, metrics := observability.Nop()
	store, err := fs.NewStorage(t.TempDir(), logger, metrics)
	require.NoError(t, err)
	return NewFetchWorker(fetcher, store, domain.DefaultOptions(), logger, metrics), store
}

func bodySink(t *testing.T, content string) domain.Sink {
	t.Helper()
	factory := &sink.MemoryFactory{}
	s, err := factory.Create("")
	require.NoError(t, err)
	_, err = s.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, s.Rewind())
	return s
}

func jobRequest(t *testing.T, job FetchJob) handler.Request {
	t.Helper()
	req, err := handler.NewRequest("fetch", job)
	require.NoError(t, err)
	return req
}

func TestProcessStoresBody(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	fetcher.On("Fetch", mock.Anything, "https://example.com/page.html", mock.Anything, nil).
		Return(&domain.Result{
			Kind:       domain.ResultSuccess,
			URL:        "https://example.com/page.html",
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Headers:    http.Header{"Content-Type": []string{"text/html"}},
			Body:       bodySink(t, "hello world"),
		}, nil)

	w, store := newWorker(t, fetcher)

	resp, err := w.Process(context.Background(), jobRequest(t, FetchJob{URL: "https://example.com/page.html"}))
	require.NoError(t, err)
	require.True(t, resp.Success)

	var outcome FetchOutcome
	require.NoError(t, json.Unmarshal(resp.Data, &outcome))
	assert.Equal(t, "https://example.com/page.html", outcome.URL)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, "text/html", outcome.ContentType)
	assert.Equal(t, helloChecksum, outcome.Checksum)
	assert.Equal(t, int64(len("hello world")), outcome.Size)
	require.NotEmpty(t, outcome.StorageKey)
	assert.Contains(t, outcome.StorageKey, ".html")

	reader, err := store.Get(context.Background(), outcome.StorageBucket, outcome.StorageKey)
	require.NoError(t, err)
	defer reader.Close()
	stored, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(stored))

	metadata, err := store.Metadata(outcome.StorageBucket, outcome.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "text/html", metadata.ContentType)
	assert.Equal(t, "https://example.com/page.html", metadata.UserMetadata["source-url"])

	fetcher.AssertExpectations(t)
}

func TestProcessUsesExplicitStorageKey(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything, nil).
		Return(&domain.Result{
			Kind:       domain.ResultSuccess,
			URL:        "https://example.com/a",
			StatusCode: http.StatusOK,
			Headers:    http.Header{},
			Body:       bodySink(t, "content"),
		}, nil)

	w, _ := newWorker(t, fetcher)

	resp, err := w.Process(context.Background(), jobRequest(t, FetchJob{
		URL:        "https://example.com/a",
		StorageKey: "fixed/key.bin",
	}))
	require.NoError(t, err)
	require.True(t, resp.Success)

	var outcome FetchOutcome
	require.NoError(t, json.Unmarshal(resp.Data, &outcome))
	assert.Equal(t, "fixed/key.bin", outcome.StorageKey)
}

func TestProcessRedirectResult(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	fetcher.On("Fetch", mock.Anything, "https://example.com/old", mock.MatchedBy(func(opts domain.Options) bool {
		return !opts.FollowRedirects
	}), nil).Return(&domain.Result{
		Kind:       domain.ResultRedirect,
		URL:        "https://example.com/old",
		StatusCode: http.StatusFound,
		Headers:    http.Header{"Location": []string{"https://example.com/new"}},
	}, nil)

	w, _ := newWorker(t, fetcher)

	follow := false
	resp, err := w.Process(context.Background(), jobRequest(t, FetchJob{
		URL:             "https://example.com/old",
		FollowRedirects: &follow,
	}))
	require.NoError(t, err)
	require.True(t, resp.Success)

	var outcome FetchOutcome
	require.NoError(t, json.Unmarshal(resp.Data, &outcome))
	assert.Equal(t, "https://example.com/new", outcome.RedirectTo)
	assert.Empty(t, outcome.StorageKey)
	assert.Empty(t, outcome.Checksum)
}

func TestProcessFetchErrorKeepsCodeAndRetryability(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{
			name:     "too many redirects",
			err:      &domain.TooManyRedirectsError{OriginalURL: "https://a.example/", MaxAttempts: 5},
			wantCode: domain.CodeTooManyRedirects,
		},
		{
			name:     "circular redirect",
			err:      &domain.CircularRedirectError{OriginalURL: "https://a.example/", URL: "https://a.example/"},
			wantCode: domain.CodeCircularRedirect,
		},
		{
			name:     "file too big",
			err:      &domain.FileTooBigError{Size: 100, Limit: 10},
			wantCode: domain.CodeFileTooBig,
		},
		{
			name:      "transport",
			err:       &domain.TransportError{URL: "https://a.example/", Err: errors.New("connection reset")},
			wantCode:  domain.CodeTransport,
			retryable: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &mocks.MockFetcher{}
			fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything, nil).
				Return(nil, tc.err)

			w, _ := newWorker(t, fetcher)

			resp, err := w.Process(context.Background(), jobRequest(t, FetchJob{URL: "https://a.example/"}))
			require.NoError(t, err)
			require.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
			assert.Equal(t, tc.retryable, resp.Error.Retryable)
		})
	}
}

func TestProcessInvalidPayload(t *testing.T) {
	w, _ := newWorker(t, &mocks.MockFetcher{})

	resp, err := w.Process(context.Background(), handler.Request{
		ID:      "bad",
		Payload: json.RawMessage(`not json`),
	})
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Equal(t, "INVALID_PAYLOAD", resp.Error.Code)
}

func TestProcessMissingURL(t *testing.T) {
	w, _ := newWorker(t, &mocks.MockFetcher{})

	resp, err := w.Process(context.Background(), jobRequest(t, FetchJob{}))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestJobOptionsOverrides(t *testing.T) {
	w, _ := newWorker(t, &mocks.MockFetcher{})

	follow := false
	opts := w.jobOptions(FetchJob{
		Method:          "HEAD",
		FollowRedirects: &follow,
		MaxSizeBytes:    2048,
		MaxRedirects:    2,
		Headers:         map[string]string{"Accept": "application/pdf"},
	})

	assert.Equal(t, domain.MethodHead, opts.Method)
	assert.False(t, opts.FollowRedirects)
	assert.Equal(t, int64(2048), opts.MaxSizeBytes)
	assert.Equal(t, 2, opts.MaxRedirects)
	assert.Equal(t, "application/pdf", opts.Headers.Get("Accept"))
}

func TestJobOptionsDefaults(t *testing.T) {
	w, _ := newWorker(t, &mocks.MockFetcher{})

	opts := w.jobOptions(FetchJob{URL: "https://example.com"})
	assert.Equal(t, domain.DefaultOptions(), opts)
}

func TestHealth(t *testing.T) {
	w, _ := newWorker(t, &mocks.MockFetcher{})
	assert.NoError(t, w.Health(context.Background()))
}
