// Package fs implements the object storage contract on the local
// filesystem, for development and tests. Objects are laid out as
// <base>/<bucket>/<key> with a JSON metadata sidecar next to each one.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/weheartit/whi-url-fetcher/observability"
	"github.com/weheartit/whi-url-fetcher/storage"
)

const metadataSuffix = ".metadata.json"

// Storage implements storage.ObjectStorage using the local filesystem.
type Storage struct {
	basePath string
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewStorage creates a filesystem-based object storage rooted at basePath.
func NewStorage(basePath string, logger observability.Logger, metrics observability.Metrics) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &Storage{
		basePath: basePath,
		logger:   logger.WithFields(observability.Fields{"component": "fs_storage"}),
		metrics:  metrics,
	}, nil
}

// Put stores an object and its metadata sidecar.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata storage.ObjectMetadata) error {
	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("storage.fs.put", time.Since(start).Seconds())
	}()

	objectPath := s.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.metrics.RecordError("storage.fs.put", "mkdir")
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}

	file, err := os.Create(objectPath)
	if err != nil {
		s.metrics.RecordError("storage.fs.put", "create")
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		s.metrics.RecordError("storage.fs.put", "write")
		return fmt.Errorf("failed to write data: %w", err)
	}

	metadata.ContentLength = written
	metadata.LastModified = time.Now().UTC()
	if err := s.saveMetadata(bucket, key, metadata); err != nil {
		s.metrics.RecordError("storage.fs.put", "metadata")
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	s.metrics.RecordSuccess("storage.fs.put")
	s.logger.Debug(ctx, "object stored", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"size":   written,
	})

	return nil
}

// Get returns a reader over the stored object.
func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrObjectNotFound
		}
		s.metrics.RecordError("storage.fs.get", "open")
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.RecordSuccess("storage.fs.get")
	return file, nil
}

// Exists reports whether an object is stored under bucket/key.
func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Delete removes an object and its metadata sidecar.
func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	if err := os.Remove(s.objectPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		s.metrics.RecordError("storage.fs.delete", "remove")
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if err := os.Remove(s.metadataPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}

	s.metrics.RecordSuccess("storage.fs.delete")
	s.logger.Debug(ctx, "object deleted", observability.Fields{
		"bucket": bucket,
		"key":    key,
	})
	return nil
}

// Metadata loads the sidecar for the given object.
func (s *Storage) Metadata(bucket, key string) (storage.ObjectMetadata, error) {
	var metadata storage.ObjectMetadata

	data, err := os.ReadFile(s.metadataPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return metadata, storage.ErrObjectNotFound
		}
		return metadata, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return metadata, nil
}

func (s *Storage) saveMetadata(bucket, key string, metadata storage.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metadataPath(bucket, key), data, 0o644)
}

func (s *Storage) objectPath(bucket, key string) string {
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(key))
}

func (s *Storage) metadataPath(bucket, key string) string {
	return s.objectPath(bucket, key) + metadataSuffix
}
