package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"photostream/internal/models"
	"photostream/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageStub is a stub for storage.Storage.
type storageStub struct {
	putFn    func(context.Context, string, io.Reader, int64, string) error
	getFn    func(context.Context, string) (io.ReadCloser, storage.ObjectInfo, error)
	deleteFn func(context.Context, string) error
	urlFn    func(string) string
}

func (s *storageStub) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.putFn(ctx, key, r, size, contentType)
}
func (s *storageStub) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.getFn(ctx, key)
}
func (s *storageStub) Delete(ctx context.Context, key string) error {
	return s.deleteFn(ctx, key)
}
func (s *storageStub) PublicURL(key string) string {
	return s.urlFn(key)
}

func noopStorage() *storageStub {
	return &storageStub{
		putFn: func(_ context.Context, _ string, _ io.Reader, _ int64, _ string) error { return nil },
		getFn: func(_ context.Context, _ string) (io.ReadCloser, storage.ObjectInfo, error) {
			return io.NopCloser(strings.NewReader("bytes")), storage.ObjectInfo{ContentType: "image/jpeg", Size: 5}, nil
		},
		deleteFn: func(_ context.Context, _ string) error { return nil },
		urlFn:    func(key string) string { return "http://blobs.local/assets/" + key },
	}
}

func TestBlobService_MakeKey(t *testing.T) {
	svc := NewBlobService(noopStorage())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain name", "sunset.jpg", "1700000000000-sunset.jpg"},
		{"spaces collapse to dashes", "golden  hour\tshot.png", "1700000000000-golden-hour-shot.png"},
		{"leading and trailing spaces", "  beach.webp  ", "1700000000000-beach.webp"},
		{"empty name falls back", "", "1700000000000-asset"},
		{"whitespace only falls back", "   ", "1700000000000-asset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.makeKey(tt.filename))
		})
	}
}

func TestBlobService_Store(t *testing.T) {
	t.Run("Success returns key and public URL", func(t *testing.T) {
		store := noopStorage()
		var putKey, putContentType string
		store.putFn = func(_ context.Context, key string, _ io.Reader, _ int64, contentType string) error {
			putKey, putContentType = key, contentType
			return nil
		}

		svc := NewBlobService(store)
		svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

		blob, err := svc.Store(context.Background(), "sunset.jpg", strings.NewReader("bytes"), 5, "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "1700000000000-sunset.jpg", blob.Key)
		assert.Equal(t, "http://blobs.local/assets/1700000000000-sunset.jpg", blob.URL)
		assert.Equal(t, putKey, blob.Key)
		assert.Equal(t, "image/jpeg", putContentType)
	})

	t.Run("Store failure maps to upstream error", func(t *testing.T) {
		store := noopStorage()
		store.putFn = func(_ context.Context, _ string, _ io.Reader, _ int64, _ string) error {
			return errors.New("connection refused")
		}

		svc := NewBlobService(store)
		blob, err := svc.Store(context.Background(), "sunset.jpg", strings.NewReader("bytes"), 5, "image/jpeg")
		assert.Nil(t, blob)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeUpstream, appErr.Code)
	})
}

func TestBlobService_DeleteIfExists(t *testing.T) {
	t.Run("Empty key is a no-op", func(t *testing.T) {
		store := noopStorage()
		called := false
		store.deleteFn = func(_ context.Context, _ string) error {
			called = true
			return nil
		}

		NewBlobService(store).DeleteIfExists(context.Background(), "")
		assert.False(t, called)
	})

	t.Run("Failure is swallowed", func(t *testing.T) {
		store := noopStorage()
		store.deleteFn = func(_ context.Context, _ string) error {
			return errors.New("backend down")
		}

		// Must not panic or propagate.
		NewBlobService(store).DeleteIfExists(context.Background(), "1700000000000-sunset.jpg")
	})
}

func TestBlobService_Open(t *testing.T) {
	t.Run("Unreachable store maps to upstream error", func(t *testing.T) {
		store := noopStorage()
		store.getFn = func(_ context.Context, _ string) (io.ReadCloser, storage.ObjectInfo, error) {
			return nil, storage.ObjectInfo{}, errors.New("no route to host")
		}

		_, _, err := NewBlobService(store).Open(context.Background(), "1700000000000-sunset.jpg")

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeUpstream, appErr.Code)
	})

	t.Run("Success passes stream and metadata through", func(t *testing.T) {
		rc, info, err := NewBlobService(noopStorage()).Open(context.Background(), "1700000000000-sunset.jpg")
		require.NoError(t, err)
		defer rc.Close()

		assert.Equal(t, "image/jpeg", info.ContentType)
		assert.Equal(t, int64(5), info.Size)

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "bytes", string(data))
	})
}
