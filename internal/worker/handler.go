// Package worker exposes URL fetching as a platform-agnostic worker:
// it parses fetch jobs, runs them through the resolver, and streams
// captured bodies into object storage.
package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"time"

	"github.com/weheartit/whi-url-fetcher/handler"
	"github.com/weheartit/whi-url-fetcher/internal/domain"
	"github.com/weheartit/whi-url-fetcher/internal/service"
	"github.com/weheartit/whi-url-fetcher/observability"
	"github.com/weheartit/whi-url-fetcher/storage"
)

// Fetcher resolves and captures a URL. Implemented by service.FetchService.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts domain.Options, observer domain.RedirectObserver) (*domain.Result, error)
}

// FetchJob is the payload of a fetch request. Zero-valued fields fall
// back to the worker's configured defaults.
type FetchJob struct {
	URL             string            `json:"url"`
	Method          string            `json:"method,omitempty"`
	FollowRedirects *bool             `json:"follow_redirects,omitempty"`
	MaxSizeBytes    int64             `json:"max_size_bytes,omitempty"`
	MaxRedirects    int               `json:"max_redirects,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	StorageBucket   string            `json:"storage_bucket,omitempty"`
	StorageKey      string            `json:"storage_key,omitempty"`
}

// FetchOutcome is the success payload returned for a processed job.
type FetchOutcome struct {
	URL           string    `json:"url"`
	StatusCode    int       `json:"status_code"`
	ContentType   string    `json:"content_type,omitempty"`
	RedirectTo    string    `json:"redirect_to,omitempty"`
	StorageBucket string    `json:"storage_bucket,omitempty"`
	StorageKey    string    `json:"storage_key,omitempty"`
	Checksum      string    `json:"checksum,omitempty"`
	Size          int64     `json:"size,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// FetchWorker implements handler.Worker on top of the fetch service
// and an object storage backend.
type FetchWorker struct {
	fetcher  Fetcher
	store    storage.ObjectStorage
	defaults domain.Options
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewFetchWorker creates a fetch worker.
func NewFetchWorker(
	fetcher Fetcher,
	store storage.ObjectStorage,
	defaults domain.Options,
	logger observability.Logger,
	metrics observability.Metrics,
) *FetchWorker {
	return &FetchWorker{
		fetcher:  fetcher,
		store:    store,
		defaults: defaults.Normalized(),
		logger:   logger.WithFields(observability.Fields{"component": "fetch_worker"}),
		metrics:  metrics,
	}
}

// Name returns the worker name.
func (w *FetchWorker) Name() string {
	return "fetcher"
}

// Process handles a fetch job: resolve the URL, capture the body, and
// persist it to object storage.
func (w *FetchWorker) Process(ctx context.Context, request handler.Request) (handler.Response, error) {
	w.metrics.StartOperation("worker_process")
	defer w.metrics.EndOperation("worker_process")

	start := time.Now()
	defer func() {
		w.metrics.RecordDuration("worker_process", time.Since(start).Seconds())
	}()

	var job FetchJob
	if err := request.Unmarshal(&job); err != nil {
		w.metrics.RecordError("worker_process", "invalid_payload")
		w.logger.Error(ctx, "Failed to parse job payload", err, observability.Fields{
			"request_id": request.ID,
		})
		return handler.NewErrorResponse(
			request.ID,
			"INVALID_PAYLOAD",
			"Failed to parse fetch job",
			err.Error(),
		), nil
	}

	if job.URL == "" {
		w.metrics.RecordError("worker_process", "missing_url")
		return handler.NewErrorResponse(
			request.ID,
			"VALIDATION_ERROR",
			"Fetch job is missing a URL",
			"",
		), nil
	}

	result, err := w.fetcher.Fetch(ctx, job.URL, w.jobOptions(job), nil)
	if err != nil {
		return w.errorResponse(ctx, request.ID, job.URL, err), nil
	}
	defer result.Close()

	outcome := FetchOutcome{
		URL:         result.URL,
		StatusCode:  result.StatusCode,
		ContentType: result.Headers.Get("Content-Type"),
		FetchedAt:   time.Now().UTC(),
	}

	switch {
	case result.Kind == domain.ResultRedirect:
		outcome.RedirectTo = result.Headers.Get("Location")

	case result.Body != nil:
		bucket, key := job.StorageBucket, job.StorageKey
		if key == "" {
			key = w.storageKey(request.ID, result.URL)
		}

		checksum := newChecksumReader(result.Body)
		metadata := storage.ObjectMetadata{
			ContentType: outcome.ContentType,
			UserMetadata: map[string]string{
				"source-url": job.URL,
				"final-url":  result.URL,
			},
		}
		if err := w.store.Put(ctx, bucket, key, checksum, metadata); err != nil {
			w.metrics.RecordError("worker_process", "storage")
			w.logger.Error(ctx, "Failed to store captured body", err, observability.Fields{
				"request_id": request.ID,
				"bucket":     bucket,
				"key":        key,
			})
			return handler.NewErrorResponse(
				request.ID,
				"STORAGE_ERROR",
				"Failed to store captured body",
				err.Error(),
			), nil
		}

		outcome.StorageBucket = bucket
		outcome.StorageKey = key
		outcome.Checksum = checksum.Checksum()
		outcome.Size = checksum.Size()
	}

	response, err := handler.NewSuccessResponse(request.ID, outcome)
	if err != nil {
		w.metrics.RecordError("worker_process", "response_creation")
		return handler.NewErrorResponse(
			request.ID,
			"RESPONSE_ERROR",
			"Failed to create response",
			err.Error(),
		), nil
	}

	w.metrics.RecordSuccess("worker_process")
	w.logger.Info(ctx, "Job processed", observability.Fields{
		"request_id":  request.ID,
		"url":         job.URL,
		"final_url":   outcome.URL,
		"status_code": outcome.StatusCode,
		"storage_key": outcome.StorageKey,
		"size":        outcome.Size,
	})

	return response, nil
}

// Health verifies the storage backend is reachable.
func (w *FetchWorker) Health(ctx context.Context) error {
	w.metrics.RecordSuccess("health_check")
	if _, err := w.store.Exists(ctx, "", ".health-probe"); err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}
	return nil
}

// jobOptions merges the job's overrides onto the configured defaults.
func (w *FetchWorker) jobOptions(job FetchJob) domain.Options {
	opts := w.defaults
	if job.Method != "" {
		opts.Method = domain.Method(job.Method)
	}
	if job.FollowRedirects != nil {
		opts.FollowRedirects = *job.FollowRedirects
	}
	if job.MaxSizeBytes > 0 {
		opts.MaxSizeBytes = job.MaxSizeBytes
	}
	if job.MaxRedirects > 0 {
		opts.MaxRedirects = job.MaxRedirects
	}
	if len(job.Headers) > 0 {
		headers := http.Header{}
		if opts.Headers != nil {
			headers = opts.Headers.Clone()
		}
		for name, value := range job.Headers {
			headers.Set(name, value)
		}
		opts.Headers = headers
	}
	return opts
}

// errorResponse maps a fetch failure onto the response envelope. Typed
// fetch errors keep their code and retryability; anything else becomes
// a generic processing error.
func (w *FetchWorker) errorResponse(ctx context.Context, requestID, url string, err error) handler.Response {
	var fetchErr domain.FetchError
	if errors.As(err, &fetchErr) {
		w.metrics.RecordError("worker_process", fetchErr.Code())
		w.logger.Warn(ctx, "Fetch failed", observability.Fields{
			"request_id": requestID,
			"url":        url,
			"error_code": fetchErr.Code(),
			"error":      err.Error(),
		})

		resp := handler.NewErrorResponse(requestID, fetchErr.Code(), err.Error(), "")
		resp.Error.Retryable = fetchErr.Retryable()
		return resp
	}

	w.metrics.RecordError("worker_process", "processing_error")
	w.logger.Error(ctx, "Fetch failed", err, observability.Fields{
		"request_id": requestID,
		"url":        url,
	})
	return handler.NewErrorResponse(
		requestID,
		"PROCESSING_ERROR",
		"Failed to process fetch job",
		err.Error(),
	)
}

// storageKey builds a date-partitioned key for a captured body.
func (w *FetchWorker) storageKey(requestID, finalURL string) string {
	key := time.Now().UTC().Format("2006/01/02") + "/" + requestID
	if hint := service.SuffixHint(finalURL); hint != "" {
		key += hint
	}
	return key
}

// checksumReader hashes content as it is read so bodies can be
// checksummed while streaming to storage.
type checksumReader struct {
	reader io.Reader
	hasher hash.Hash
	size   int64
}

func newChecksumReader(r io.Reader) *checksumReader {
	hasher := sha256.New()
	return &checksumReader{
		reader: io.TeeReader(r, hasher),
		hasher: hasher,
	}
}

func (r *checksumReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	r.size += int64(n)
	return
}

// Checksum returns the hex SHA-256 of everything read so far.
func (r *checksumReader) Checksum() string {
	return hex.EncodeToString(r.hasher.Sum(nil))
}

// Size returns the total bytes read.
func (r *checksumReader) Size() int64 {
	return r.size
}
