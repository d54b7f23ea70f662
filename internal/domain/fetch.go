package domain

import (
	"net/http"
	"time"
)

// Method is the HTTP verb used for a fetch.
type Method string

const (
	MethodGet  Method = "GET"
	MethodHead Method = "HEAD"
	MethodPost Method = "POST"
)

// Valid reports whether the method is one the fetcher supports.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodHead, MethodPost:
		return true
	}
	return false
}

// HasResponseBody reports whether responses to this method carry a body
// worth capturing. HEAD responses never do.
func (m Method) HasResponseBody() bool {
	return m != MethodHead
}

// Default option values. MaxRedirects is deliberately an option rather
// than a package constant so tests and callers can tighten it.
const (
	DefaultMaxSizeBytes int64 = 10 << 20
	DefaultMaxRedirects       = 5
	DefaultOpenTimeout        = 10 * time.Second
	DefaultReadTimeout        = 20 * time.Second
)

// Options configures a single fetch call. Options are treated as
// immutable for the duration of the call, including across its whole
// redirect chain.
type Options struct {
	// FollowRedirects enables automatic resolution of 3xx responses.
	FollowRedirects bool

	// Method is the HTTP verb for every request in the chain.
	Method Method

	// MaxSizeBytes rejects responses whose declared Content-Length
	// exceeds it. It does not cap servers that omit or understate the
	// header; see Capturer.
	MaxSizeBytes int64

	// OpenTimeout bounds connection establishment.
	OpenTimeout time.Duration

	// ReadTimeout bounds each body read operation, not the whole
	// transfer.
	ReadTimeout time.Duration

	// Headers are sent with every request in the chain. Multi-valued
	// headers are sent as repeated fields in the order supplied.
	Headers http.Header

	// UnlinkSinkOnClose removes the sink's backing file from the
	// filesystem namespace as soon as it is created. The open handle
	// stays readable.
	UnlinkSinkOnClose bool

	// MaxRedirects is the redirect chain ceiling. The ceiling check
	// fires only once the chain already exceeds it, so up to
	// MaxRedirects+1 requests may be issued. That off-by-one is an
	// observable contract, not a bug to fix here.
	MaxRedirects int
}

// DefaultOptions returns the options used when a caller passes the zero
// value for a field.
func DefaultOptions() Options {
	return Options{
		FollowRedirects:   true,
		Method:            MethodGet,
		MaxSizeBytes:      DefaultMaxSizeBytes,
		OpenTimeout:       DefaultOpenTimeout,
		ReadTimeout:       DefaultReadTimeout,
		UnlinkSinkOnClose: true,
		MaxRedirects:      DefaultMaxRedirects,
	}
}

// Normalized returns a copy with defaults applied for unset fields.
// FollowRedirects and UnlinkSinkOnClose are plain bools and are taken
// as given; use DefaultOptions as the starting point to get their
// defaults.
func (o Options) Normalized() Options {
	if o.Method == "" {
		o.Method = MethodGet
	}
	if o.MaxSizeBytes <= 0 {
		o.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = DefaultOpenTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	return o
}

// ResultKind distinguishes the two non-error fetch outcomes.
type ResultKind string

const (
	// ResultSuccess is a 2xx response; Body holds the captured stream
	// for body-bearing methods.
	ResultSuccess ResultKind = "success"

	// ResultRedirect is a 3xx response that was deliberately not
	// followed (FollowRedirects disabled, or an observer abort). It
	// never carries a body.
	ResultRedirect ResultKind = "redirect"
)

// Result is the outcome of a fetch. It is immutable after construction.
// When Body is non-nil the caller owns it and must close it.
type Result struct {
	Kind ResultKind

	// URL is the final resolved URL: the last URL of the chain on
	// success, or the redirect target's predecessor when the chain was
	// not followed.
	URL string

	StatusCode int
	Status     string
	Headers    http.Header

	// Body is the captured response body, rewound to the start.
	// Nil for redirects and HEAD responses.
	Body Sink
}

// Close releases the captured body, if any. Safe to call on results
// without one and safe to call twice.
func (r *Result) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
