// Package sink provides the spillable byte stores captured response
// bodies land in. The file implementation keeps bodies out of memory;
// the memory implementation exists for tests and small deployments.
package sink

import (
	"io"
	"os"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
)

// FileFactory creates temp-file backed sinks.
type FileFactory struct {
	// Dir is the directory for temp files; empty means os.TempDir.
	Dir string

	// Unlink removes each file from the filesystem namespace as soon
	// as it is created. The open descriptor stays fully readable, and
	// the kernel reclaims the space when it is closed.
	Unlink bool
}

// Create opens a fresh temp file. suffixHint, when non-empty, becomes
// the file's extension so downstream tooling can sniff the content.
func (f *FileFactory) Create(suffixHint string) (domain.Sink, error) {
	pattern := "fetch-*"
	if suffixHint != "" {
		pattern += suffixHint
	}
	file, err := os.CreateTemp(f.Dir, pattern)
	if err != nil {
		return nil, err
	}
	s := &fileSink{file: file, path: file.Name()}
	if f.Unlink {
		if err := os.Remove(s.path); err != nil {
			file.Close()
			return nil, err
		}
		s.unlinked = true
	}
	return s, nil
}

type fileSink struct {
	file     *os.File
	path     string
	unlinked bool
	closed   bool
}

func (s *fileSink) Read(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.file.Read(p)
}

func (s *fileSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.file.Write(p)
}

func (s *fileSink) Rewind() error {
	if s.closed {
		return os.ErrClosed
	}
	_, err := s.file.Seek(0, io.SeekStart)
	return err
}

func (s *fileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

func (s *fileSink) Closed() bool {
	return s.closed
}

func (s *fileSink) Discard() error {
	if s.closed {
		return nil
	}
	err := s.Close()
	if !s.unlinked {
		if rmErr := os.Remove(s.path); err == nil {
			err = rmErr
		}
	}
	return err
}

// Name returns the path the sink was created at. For unlinked sinks the
// path no longer resolves; it is kept for logging.
func (s *fileSink) Name() string {
	return s.path
}
