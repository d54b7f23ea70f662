// Package storage defines the object storage contract used to persist
// captured bodies. Adapters for S3 and the local filesystem live in
// subpackages.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Get when no object exists under the
// requested key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata carries the attributes stored alongside an object.
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	LastModified  time.Time
	ETag          string
	UserMetadata  map[string]string
}

// ObjectStorage stores and retrieves captured bodies. Bucket may be
// empty, in which case the adapter's configured default bucket is used.
type ObjectStorage interface {
	// Put stores the object read from reader under bucket/key.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get returns a reader over the object. The caller must close it.
	// Returns ErrObjectNotFound if the key does not exist.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under bucket/key.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
