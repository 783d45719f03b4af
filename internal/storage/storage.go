// Package storage defines the contract for the external key-addressed blob
// store. Implementations are S3-compatible; the concrete client is injected
// at startup.
package storage

import (
	"context"
	"io"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// Storage is the interface for the blob store collaborator.
type Storage interface {
	// Put streams data to the store under the given key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Get opens a stream for the object at key along with its metadata.
	// The caller owns the returned ReadCloser.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the object at key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
