// Package service holds the fetch core: the redirect resolver and the
// bounded body capturer. Transport and temporary storage are ports
// (domain.HTTPClient, domain.SinkFactory) so both can be substituted
// in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
	"github.com/weheartit/whi-url-fetcher/observability"
)

// FetchService resolves a URL through its redirect chain and captures
// the final response body into a sink. One Fetch call is fully
// synchronous and keeps all of its state (history, options, sink) to
// itself, so a single FetchService is safe for concurrent use.
type FetchService struct {
	client   domain.HTTPClient
	capturer *Capturer
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewFetchService wires a fetch service from its collaborators.
func NewFetchService(client domain.HTTPClient, sinks domain.SinkFactory, logger observability.Logger, metrics observability.Metrics) *FetchService {
	return &FetchService{
		client:   client,
		capturer: NewCapturer(sinks, logger, metrics),
		logger:   logger,
		metrics:  metrics,
	}
}

// Fetch retrieves rawURL, following redirects according to opts.
// observer may be nil; when present it is consulted before each
// redirect is followed and can abort resolution.
//
// Every failure is one of the typed errors in the domain package;
// transport causes are wrapped, never leaked raw. The returned
// Result's Body (when present) is owned by the caller.
func (s *FetchService) Fetch(ctx context.Context, rawURL string, opts domain.Options, observer domain.RedirectObserver) (*domain.Result, error) {
	opts = opts.Normalized()
	if !opts.Method.Valid() {
		return nil, fmt.Errorf("unsupported method %q", opts.Method)
	}

	s.metrics.StartOperation("fetch")
	defer s.metrics.EndOperation("fetch")
	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("fetch", time.Since(start).Seconds())
	}()

	s.logger.Debug(ctx, "starting fetch", observability.Fields{
		"url":    rawURL,
		"method": string(opts.Method),
	})

	result, err := s.resolve(ctx, rawURL, opts, observer)
	if err != nil {
		s.metrics.RecordError("fetch", errorType(err))
		s.logger.Error(ctx, "fetch failed", err, observability.Fields{
			"url": rawURL,
		})
		return nil, err
	}

	s.metrics.RecordSuccess("fetch")
	s.logger.Info(ctx, "fetch complete", observability.Fields{
		"url":          rawURL,
		"resolved_url": result.URL,
		"status":       result.StatusCode,
		"kind":         string(result.Kind),
	})
	return result, nil
}

// resolve is the redirect-resolution loop. The chain history is an
// explicit accumulated value rather than call recursion; the ceiling
// bounds iterations either way.
func (s *FetchService) resolve(ctx context.Context, rawURL string, opts domain.Options, observer domain.RedirectObserver) (*domain.Result, error) {
	history := domain.History{}
	current := rawURL

	for {
		// The ceiling check runs before append, so it only trips once
		// the chain already exceeds MaxRedirects: MaxRedirects+1
		// requests can go out. Preserved deliberately; callers depend
		// on the boundary.
		if len(history) > opts.MaxRedirects {
			return nil, &domain.TooManyRedirectsError{
				OriginalURL: history.First(),
				MaxAttempts: opts.MaxRedirects,
			}
		}
		if history.Contains(current) {
			original := history.First()
			return nil, &domain.CircularRedirectError{
				OriginalURL: original,
				URL:         current,
			}
		}
		history = append(history, current)

		resolved, err := parseAbsoluteURL(current)
		if err != nil {
			return nil, err
		}
		resolvedURL := resolved.String()

		ex, err := s.client.Exchange(ctx, opts.Method, resolvedURL, opts.Headers, opts)
		if err != nil {
			var transportErr *domain.TransportError
			if errors.As(err, &transportErr) {
				return nil, err
			}
			return nil, &domain.TransportError{URL: resolvedURL, Err: err}
		}

		switch {
		case ex.StatusCode >= 200 && ex.StatusCode < 300:
			return s.success(ctx, resolvedURL, ex, opts)

		case ex.StatusCode >= 300 && ex.StatusCode < 400:
			redirect := &domain.Result{
				Kind:       domain.ResultRedirect,
				URL:        resolvedURL,
				StatusCode: ex.StatusCode,
				Status:     ex.Status,
				Headers:    ex.Headers,
			}

			if !opts.FollowRedirects {
				drainAndClose(ex.Body)
				return redirect, nil
			}

			location := ex.Headers.Get("Location")
			drainAndClose(ex.Body)
			if location == "" {
				return nil, &domain.InvalidURLError{Err: errors.New("redirect response missing Location header")}
			}

			next := resolveLocation(resolved, location)
			if observer != nil && !observer.OnRedirect(next) {
				s.logger.Debug(ctx, "redirect aborted by observer", observability.Fields{
					"url":      resolvedURL,
					"location": next,
				})
				return redirect, nil
			}

			s.logger.Debug(ctx, "following redirect", observability.Fields{
				"from":     resolvedURL,
				"to":       next,
				"attempts": len(history),
			})
			current = next

		default:
			drainAndClose(ex.Body)
			return nil, &domain.HTTPStatusError{
				StatusCode: ex.StatusCode,
				Status:     ex.Status,
			}
		}
	}
}

// success builds a success result, capturing the body for body-bearing
// methods. HEAD responses never reach the capturer.
func (s *FetchService) success(ctx context.Context, resolvedURL string, ex *domain.Exchange, opts domain.Options) (*domain.Result, error) {
	result := &domain.Result{
		Kind:       domain.ResultSuccess,
		URL:        resolvedURL,
		StatusCode: ex.StatusCode,
		Status:     ex.Status,
		Headers:    ex.Headers,
	}

	if !opts.Method.HasResponseBody() {
		drainAndClose(ex.Body)
		return result, nil
	}

	body, err := s.capturer.Capture(ctx, ex.Body, ex.ContentLength, opts.MaxSizeBytes, resolvedURL)
	ex.Body.Close()
	if err != nil {
		return nil, err
	}
	result.Body = body
	return result, nil
}

// parseAbsoluteURL parses a URL and requires an absolute http(s) form.
func parseAbsoluteURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &domain.InvalidURLError{URL: rawURL, Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &domain.InvalidURLError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return nil, &domain.InvalidURLError{URL: rawURL, Err: errors.New("missing host")}
	}
	return parsed, nil
}

// resolveLocation turns a Location header value into an absolute URL.
// Absolute targets (anything with a scheme delimiter) pass through
// untouched; relative ones take the scheme and host of the request
// that produced the redirect, with the location's path and query kept
// exactly as sent.
func resolveLocation(base *url.URL, location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	return base.Scheme + "://" + base.Host + location
}

// drainAndClose discards any unread body and closes it so the
// underlying connection can be reused.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	io.Copy(io.Discard, body)
	body.Close()
}

// errorType maps an error to a stable metrics label.
func errorType(err error) string {
	var fetchErr domain.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Code()
	}
	return "unknown"
}
