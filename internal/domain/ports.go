package domain

import (
	"context"
	"io"
	"net/http"
)

// Exchange is the raw outcome of a single HTTP request/response pair.
// The fetcher owns classification; the client just reports what the
// wire said.
type Exchange struct {
	StatusCode int
	// Status is the full status line, e.g. "301 Moved Permanently".
	Status  string
	Headers http.Header
	// ContentLength is the declared body length, or -1 when the server
	// did not send one.
	ContentLength int64
	// Body is the live response stream. The fetcher always drains or
	// captures and closes it.
	Body io.ReadCloser
}

// HTTPClient performs exactly one HTTP exchange per call and never
// follows redirects itself; redirect resolution belongs to the fetcher.
// Implementations honor ctx cancellation and the per-call timeouts.
type HTTPClient interface {
	Exchange(ctx context.Context, method Method, url string, headers http.Header, opts Options) (*Exchange, error)
}

// Sink is a spillable byte store holding one captured response body.
// It is written once, sequentially, during capture; rewound; then read
// by the caller. Close and Discard are idempotent, and reading after
// close returns an error rather than corrupt data.
type Sink interface {
	io.Reader
	io.Writer

	// Rewind seeks back to the start so the content can be re-read.
	Rewind() error

	// Close releases the handle. For file-backed sinks created with
	// unlink-on-close, the backing file is already gone from the
	// filesystem namespace and this just drops the descriptor.
	Close() error

	// Closed reports whether Close or Discard has been called.
	Closed() bool

	// Discard closes the sink and removes any backing storage that
	// still exists, for cleaning up after a failed capture.
	Discard() error
}

// SinkFactory creates fresh sinks. suffixHint, when non-empty, is a
// file extension (with leading dot) derived from the source URL; file
// backed factories use it to name the temporary file.
type SinkFactory interface {
	Create(suffixHint string) (Sink, error)
}

// RedirectObserver is consulted before each redirect is followed.
// Returning false aborts resolution: the fetcher stops and returns the
// redirect response it was about to follow. Injected per call so tests
// can substitute policies.
type RedirectObserver interface {
	OnRedirect(candidateURL string) bool
}

// ObserverFunc adapts a plain function to RedirectObserver.
type ObserverFunc func(candidateURL string) bool

func (f ObserverFunc) OnRedirect(candidateURL string) bool { return f(candidateURL) }
