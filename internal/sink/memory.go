package sink

import (
	"io"
	"os"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
)

// MemoryFactory creates in-memory sinks. Tests use it to avoid touching
// real temporary storage; it records every sink it creates and the
// suffix hints it was asked for.
type MemoryFactory struct {
	// Hints collects the suffix hints passed to Create, in order.
	Hints []string

	// Sinks collects the created sinks, in order.
	Sinks []*MemorySink
}

// Create returns an empty in-memory sink.
func (f *MemoryFactory) Create(suffixHint string) (domain.Sink, error) {
	f.Hints = append(f.Hints, suffixHint)
	s := &MemorySink{}
	f.Sinks = append(f.Sinks, s)
	return s, nil
}

// MemorySink implements domain.Sink on a byte slice.
type MemorySink struct {
	data      []byte
	off       int
	closed    bool
	discarded bool
}

func (s *MemorySink) Read(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	if s.off >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.off:])
	s.off += n
	return n, nil
}

func (s *MemorySink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	s.data = append(s.data, p...)
	return len(p), nil
}

func (s *MemorySink) Rewind() error {
	if s.closed {
		return os.ErrClosed
	}
	s.off = 0
	return nil
}

func (s *MemorySink) Close() error {
	s.closed = true
	return nil
}

func (s *MemorySink) Closed() bool {
	return s.closed
}

func (s *MemorySink) Discard() error {
	s.discarded = true
	return s.Close()
}

// Discarded reports whether Discard was called, for test assertions.
func (s *MemorySink) Discarded() bool {
	return s.discarded
}

// Bytes exposes the captured content for test assertions.
func (s *MemorySink) Bytes() []byte {
	return s.data
}
