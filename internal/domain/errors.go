package domain

import (
	"errors"
	"fmt"
	"net"
)

// Error codes, stable across releases. Workers and metrics key off
// these rather than message text.
const (
	CodeTooManyRedirects = "TOO_MANY_REDIRECTS"
	CodeCircularRedirect = "CIRCULAR_REDIRECT"
	CodeFileTooBig       = "FILE_TOO_BIG"
	CodeInvalidURL       = "INVALID_URL"
	CodeHTTPStatus       = "HTTP_STATUS"
	CodeTransport        = "TRANSPORT"
)

// FetchError is implemented by every failure the fetcher can return.
// Callers branch on the concrete type with errors.As, or on Code for
// flat dispatch (metrics labels, queue responses).
type FetchError interface {
	error
	// Code returns the machine-readable error code.
	Code() string
	// Retryable reports whether retrying the same fetch could succeed.
	Retryable() bool
}

// TooManyRedirectsError is returned when the redirect chain exceeds the
// configured ceiling.
type TooManyRedirectsError struct {
	// OriginalURL is the first URL of the chain.
	OriginalURL string
	// MaxAttempts is the configured ceiling.
	MaxAttempts int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("%s: stopped following redirects for %s after %d attempts", CodeTooManyRedirects, e.OriginalURL, e.MaxAttempts)
}

func (e *TooManyRedirectsError) Code() string    { return CodeTooManyRedirects }
func (e *TooManyRedirectsError) Retryable() bool { return false }

// CircularRedirectError is returned when a URL repeats anywhere in the
// redirect chain, including the very first URL.
type CircularRedirectError struct {
	// OriginalURL is the first URL of the chain.
	OriginalURL string
	// URL is the target that closed the loop.
	URL string
}

func (e *CircularRedirectError) Error() string {
	return fmt.Sprintf("%s: circular redirect starting at %s (loop at %s)", CodeCircularRedirect, e.OriginalURL, e.URL)
}

func (e *CircularRedirectError) Code() string    { return CodeCircularRedirect }
func (e *CircularRedirectError) Retryable() bool { return false }

// FileTooBigError is returned when a response declares a Content-Length
// above the configured limit. No body bytes have been read when this
// error is produced.
type FileTooBigError struct {
	// Size is the declared Content-Length.
	Size int64
	// Limit is the configured maximum.
	Limit int64
}

func (e *FileTooBigError) Error() string {
	return fmt.Sprintf("%s: declared length %d exceeds limit %d", CodeFileTooBig, e.Size, e.Limit)
}

func (e *FileTooBigError) Code() string    { return CodeFileTooBig }
func (e *FileTooBigError) Retryable() bool { return false }

// InvalidURLError is returned when a URL (original or redirect target)
// cannot be parsed or uses an unsupported scheme.
type InvalidURLError struct {
	// URL is the offending string; empty when a redirect response had
	// no Location header at all.
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", CodeInvalidURL, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %q", CodeInvalidURL, e.URL)
}

func (e *InvalidURLError) Unwrap() error   { return e.Err }
func (e *InvalidURLError) Code() string    { return CodeInvalidURL }
func (e *InvalidURLError) Retryable() bool { return false }

// HTTPStatusError is returned for responses that are neither 2xx nor
// 3xx. The fetcher never retries these.
type HTTPStatusError struct {
	StatusCode int
	// Status is the server's status line, e.g. "404 Not Found".
	Status string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %s", CodeHTTPStatus, e.Status)
}

func (e *HTTPStatusError) Code() string    { return CodeHTTPStatus }
func (e *HTTPStatusError) Retryable() bool { return e.StatusCode >= 500 }

// TransportError wraps a failure from the underlying HTTP client:
// connection refusals, open timeouts, read timeouts, mid-stream resets.
// No raw transport error crosses the fetch boundary without this
// wrapper.
type TransportError struct {
	// URL is the URL the exchange was attempting.
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeTransport, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error   { return e.Err }
func (e *TransportError) Code() string    { return CodeTransport }
func (e *TransportError) Retryable() bool { return true }

// Timeout reports whether the underlying cause was an open or read
// timeout.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
