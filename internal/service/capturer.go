package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
	"github.com/weheartit/whi-url-fetcher/observability"
)

// maxSuffixHintLen caps the extension hint taken from a URL path.
// Anything longer is almost certainly not an extension but a path
// segment that happens to contain a dot.
const maxSuffixHintLen = 12

// Capturer drains a successful response body into a fresh sink while
// enforcing the declared-size limit.
type Capturer struct {
	sinks   domain.SinkFactory
	logger  observability.Logger
	metrics observability.Metrics
}

// NewCapturer creates a capturer writing into sinks from the given
// factory.
func NewCapturer(sinks domain.SinkFactory, logger observability.Logger, metrics observability.Metrics) *Capturer {
	return &Capturer{
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
	}
}

// Capture streams body into a new sink and returns the sink rewound to
// its start.
//
// declaredLength is the response's Content-Length, or -1 when absent.
// A declared length over maxSize fails with FileTooBigError before a
// single body byte is read. The check is pre-flight only: a server
// that omits or understates the header is not re-capped during the
// copy. On a mid-stream failure the partial sink is discarded.
func (c *Capturer) Capture(ctx context.Context, body io.Reader, declaredLength, maxSize int64, sourceURL string) (domain.Sink, error) {
	if declaredLength > 0 && declaredLength > maxSize {
		c.metrics.RecordError("capture", domain.CodeFileTooBig)
		return nil, &domain.FileTooBigError{Size: declaredLength, Limit: maxSize}
	}

	hint := SuffixHint(sourceURL)
	s, err := c.sinks.Create(hint)
	if err != nil {
		c.metrics.RecordError("capture", "sink_create")
		return nil, fmt.Errorf("create sink: %w", err)
	}

	written, err := io.Copy(s, body)
	if err != nil {
		if discardErr := s.Discard(); discardErr != nil {
			c.logger.Warn(ctx, "failed to discard partial sink", observability.Fields{
				"url":   sourceURL,
				"error": discardErr.Error(),
			})
		}
		c.metrics.RecordError("capture", domain.CodeTransport)
		return nil, &domain.TransportError{URL: sourceURL, Err: err}
	}

	if err := s.Rewind(); err != nil {
		s.Discard()
		return nil, fmt.Errorf("rewind sink: %w", err)
	}

	c.metrics.RecordBodySize(strings.TrimPrefix(hint, "."), written)
	c.metrics.RecordSuccess("capture")
	return s, nil
}

// SuffixHint derives a file extension hint (with leading dot) from a
// URL's path. The query string is stripped first; implausibly long
// results are dropped.
func SuffixHint(sourceURL string) string {
	trimmed := sourceURL
	if idx := strings.IndexByte(trimmed, '?'); idx != -1 {
		trimmed = trimmed[:idx]
	}
	ext := path.Ext(trimmed)
	if len(ext) > maxSuffixHintLen {
		return ""
	}
	return ext
}
