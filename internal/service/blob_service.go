// Package service contains the business logic between the HTTP handlers and
// the repositories.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"photostream/internal/middleware"
	"photostream/internal/models"
	"photostream/internal/observability"
	"photostream/internal/storage"
)

// StoredBlob describes an object that was written to the blob store.
type StoredBlob struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// BlobService wraps the blob store with key generation and error translation.
type BlobService struct {
	store storage.Storage
	now   func() time.Time
}

// NewBlobService returns a BlobService backed by store.
func NewBlobService(store storage.Storage) *BlobService {
	return &BlobService{store: store, now: time.Now}
}

// makeKey derives the storage key for an uploaded file: upload timestamp in
// milliseconds, a dash, and the original filename with all whitespace runs
// collapsed to single dashes.
func (s *BlobService) makeKey(filename string) string {
	name := strings.Join(strings.Fields(filename), "-")
	if name == "" {
		name = "asset"
	}
	return fmt.Sprintf("%d-%s", s.now().UnixMilli(), name)
}

// Store writes the upload to the blob store and returns its key and public URL.
func (s *BlobService) Store(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (*StoredBlob, error) {
	key := s.makeKey(filename)

	start := time.Now()
	err := s.store.Put(ctx, key, reader, size, contentType)
	observability.ObserveBlobOperation("put", start, err)
	if err != nil {
		return nil, models.NewUpstreamError("Image upload failed", err)
	}

	return &StoredBlob{
		Key:         key,
		URL:         s.store.PublicURL(key),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// DeleteIfExists removes the blob under key. Failures are logged, never
// escalated: the post record is the source of truth and an orphaned blob is
// an acceptable leak.
func (s *BlobService) DeleteIfExists(ctx context.Context, key string) {
	if key == "" {
		return
	}

	start := time.Now()
	err := s.store.Delete(ctx, key)
	observability.ObserveBlobOperation("delete", start, err)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "blob delete failed, object orphaned",
			"key", key,
			"error", err,
		)
	}
}

// Open fetches the blob under key for streaming. A store that is unreachable
// or missing the object surfaces as an upstream error, which handlers map to
// 502.
func (s *BlobService) Open(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	start := time.Now()
	rc, info, err := s.store.Get(ctx, key)
	observability.ObserveBlobOperation("get", start, err)
	if err != nil {
		return nil, storage.ObjectInfo{}, models.NewUpstreamError("Image fetch failed", err)
	}
	return rc, info, nil
}
