package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"photostream/internal/authz"
	"photostream/internal/models"
	"photostream/internal/repository"
	"photostream/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint, uint) (*models.Post, error)
	feedFn         func(context.Context, repository.FeedQuery, uint) ([]*models.Post, error)
	updateFieldsFn func(context.Context, uint, string, string, string) error
	deleteFn       func(context.Context, uint) error
	toggleLikeFn   func(context.Context, uint, uint) (bool, int, error)
	existsFn       func(context.Context, uint) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) Feed(ctx context.Context, q repository.FeedQuery, currentUserID uint) ([]*models.Post, error) {
	return s.feedFn(ctx, q, currentUserID)
}
func (s *postRepoStub) UpdateFields(ctx context.Context, id uint, title, caption, location string) error {
	return s.updateFieldsFn(ctx, id, title, caption, location)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 7, BlobKey: "1700000000000-sunset.jpg"}, nil
		},
		feedFn: func(_ context.Context, _ repository.FeedQuery, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		updateFieldsFn: func(_ context.Context, _ uint, _, _, _ string) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn:   func(_ context.Context, _, _ uint) (bool, int, error) { return true, 1, nil },
		existsFn:       func(_ context.Context, _ uint) (bool, error) { return true, nil },
	}
}

func creatorPrincipal(id uint) *authz.Principal {
	return &authz.Principal{UserID: id, Role: models.RoleCreator}
}

func viewerPrincipal(id uint) *authz.Principal {
	return &authz.Principal{UserID: id, Role: models.RoleViewer}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestPostService_CreatePost_Authorization(t *testing.T) {
	svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
	in := CreatePostInput{Filename: "sunset.jpg", Image: strings.NewReader("bytes"), Size: 5, ContentType: "image/jpeg"}

	t.Run("Nil principal is unauthenticated", func(t *testing.T) {
		_, err := svc.CreatePost(context.Background(), nil, in)
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
	})

	t.Run("Viewer is forbidden", func(t *testing.T) {
		_, err := svc.CreatePost(context.Background(), viewerPrincipal(9), in)
		assertAppErrorCode(t, err, models.CodeForbidden)
	})
}

func TestPostService_CreatePost(t *testing.T) {
	t.Run("Success sets asset reference and owner", func(t *testing.T) {
		repo := noopPostRepo()
		var created *models.Post
		repo.createFn = func(_ context.Context, post *models.Post) error {
			post.ID = 5
			created = post
			return nil
		}
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return created, nil
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		post, err := svc.CreatePost(context.Background(), creatorPrincipal(7), CreatePostInput{
			Title:       "Golden hour",
			Filename:    "golden hour.jpg",
			Image:       strings.NewReader("bytes"),
			Size:        5,
			ContentType: "image/jpeg",
		})
		require.NoError(t, err)

		assert.Equal(t, uint(7), post.UserID)
		assert.NotEmpty(t, post.ImageURL)
		assert.NotContains(t, post.BlobKey, " ")
		assert.True(t, strings.HasSuffix(post.BlobKey, "-golden-hour.jpg"))
		assert.Equal(t, "image/jpeg", post.ContentType)
	})

	t.Run("Missing image is a validation error", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		_, err := svc.CreatePost(context.Background(), creatorPrincipal(7), CreatePostInput{Title: "No image"})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("Oversized title is a validation error", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		_, err := svc.CreatePost(context.Background(), creatorPrincipal(7), CreatePostInput{
			Title: strings.Repeat("x", models.MaxTitleLen+1),
			Image: strings.NewReader("bytes"),
		})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("Upload failure maps to upstream and no record is written", func(t *testing.T) {
		repo := noopPostRepo()
		recordWritten := false
		repo.createFn = func(_ context.Context, _ *models.Post) error {
			recordWritten = true
			return nil
		}

		store := noopStorage()
		store.putFn = func(_ context.Context, _ string, _ io.Reader, _ int64, _ string) error {
			return errors.New("connection refused")
		}

		svc := NewPostService(repo, NewBlobService(store))
		_, err := svc.CreatePost(context.Background(), creatorPrincipal(7), CreatePostInput{
			Filename: "sunset.jpg",
			Image:    strings.NewReader("bytes"),
		})
		assertAppErrorCode(t, err, models.CodeUpstream)
		assert.False(t, recordWritten)
	})
}

func TestPostService_Feed(t *testing.T) {
	t.Run("Creator feed is scoped to own posts", func(t *testing.T) {
		repo := noopPostRepo()
		var gotQuery repository.FeedQuery
		repo.feedFn = func(_ context.Context, q repository.FeedQuery, _ uint) ([]*models.Post, error) {
			gotQuery = q
			return nil, nil
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		_, err := svc.Feed(context.Background(), creatorPrincipal(7), FeedInput{Search: "sunset"})
		require.NoError(t, err)
		assert.Equal(t, uint(7), gotQuery.OwnerID)
		assert.Equal(t, "sunset", gotQuery.Search)
	})

	t.Run("Viewer feed is unscoped", func(t *testing.T) {
		repo := noopPostRepo()
		var gotQuery repository.FeedQuery
		repo.feedFn = func(_ context.Context, q repository.FeedQuery, _ uint) ([]*models.Post, error) {
			gotQuery = q
			return nil, nil
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		_, err := svc.Feed(context.Background(), viewerPrincipal(9), FeedInput{})
		require.NoError(t, err)
		assert.Zero(t, gotQuery.OwnerID)
	})

	t.Run("Nil principal is unauthenticated", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		_, err := svc.Feed(context.Background(), nil, FeedInput{})
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
	})
}

func TestPostService_UpdatePost(t *testing.T) {
	t.Run("Owner replaces caption fields, absent fields become empty", func(t *testing.T) {
		repo := noopPostRepo()
		var gotTitle, gotCaption, gotLocation string
		repo.updateFieldsFn = func(_ context.Context, _ uint, title, caption, location string) error {
			gotTitle, gotCaption, gotLocation = title, caption, location
			return nil
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		title := "New title"
		_, err := svc.UpdatePost(context.Background(), creatorPrincipal(7), UpdatePostInput{
			PostID: 5,
			Title:  &title,
		})
		require.NoError(t, err)
		assert.Equal(t, "New title", gotTitle)
		assert.Empty(t, gotCaption)
		assert.Empty(t, gotLocation)
	})

	t.Run("Non-owner creator is forbidden", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		_, err := svc.UpdatePost(context.Background(), creatorPrincipal(8), UpdatePostInput{PostID: 5})
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("Viewer is forbidden", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		_, err := svc.UpdatePost(context.Background(), viewerPrincipal(9), UpdatePostInput{PostID: 5})
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("Missing post is not found", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		_, err := svc.UpdatePost(context.Background(), creatorPrincipal(7), UpdatePostInput{PostID: 42})
		assertAppErrorCode(t, err, models.CodeNotFound)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	t.Run("Owner delete removes blob then record", func(t *testing.T) {
		repo := noopPostRepo()
		recordDeleted := false
		repo.deleteFn = func(_ context.Context, _ uint) error {
			recordDeleted = true
			return nil
		}

		store := noopStorage()
		var deletedKey string
		store.deleteFn = func(_ context.Context, key string) error {
			deletedKey = key
			return nil
		}

		svc := NewPostService(repo, NewBlobService(store))
		err := svc.DeletePost(context.Background(), creatorPrincipal(7), 5)
		require.NoError(t, err)
		assert.Equal(t, "1700000000000-sunset.jpg", deletedKey)
		assert.True(t, recordDeleted)
	})

	t.Run("Blob delete failure does not block the delete", func(t *testing.T) {
		repo := noopPostRepo()
		recordDeleted := false
		repo.deleteFn = func(_ context.Context, _ uint) error {
			recordDeleted = true
			return nil
		}

		store := noopStorage()
		store.deleteFn = func(_ context.Context, _ string) error {
			return errors.New("backend down")
		}

		svc := NewPostService(repo, NewBlobService(store))
		err := svc.DeletePost(context.Background(), creatorPrincipal(7), 5)
		assert.NoError(t, err)
		assert.True(t, recordDeleted)
	})

	t.Run("Non-owner is forbidden and nothing is deleted", func(t *testing.T) {
		repo := noopPostRepo()
		repo.deleteFn = func(_ context.Context, _ uint) error {
			t.Fatal("record delete must not be reached")
			return nil
		}

		store := noopStorage()
		store.deleteFn = func(_ context.Context, _ string) error {
			t.Fatal("blob delete must not be reached")
			return nil
		}

		svc := NewPostService(repo, NewBlobService(store))
		err := svc.DeletePost(context.Background(), creatorPrincipal(8), 5)
		assertAppErrorCode(t, err, models.CodeForbidden)
	})
}

func TestPostService_ToggleLike(t *testing.T) {
	t.Run("Reports the new state", func(t *testing.T) {
		repo := noopPostRepo()
		repo.toggleLikeFn = func(_ context.Context, postID, userID uint) (bool, int, error) {
			assert.Equal(t, uint(5), postID)
			assert.Equal(t, uint(9), userID)
			return true, 4, nil
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		result, err := svc.ToggleLike(context.Background(), viewerPrincipal(9), 5)
		require.NoError(t, err)
		assert.Equal(t, uint(5), result.PostID)
		assert.True(t, result.Liked)
		assert.Equal(t, 4, result.LikesCount)
	})

	t.Run("Missing post is not found", func(t *testing.T) {
		repo := noopPostRepo()
		repo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		_, err := svc.ToggleLike(context.Background(), viewerPrincipal(9), 42)
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("Nil principal is unauthenticated", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		_, err := svc.ToggleLike(context.Background(), nil, 5)
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
	})
}

func TestPostService_Download(t *testing.T) {
	t.Run("No principal required", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), NewBlobService(noopStorage()))
		result, err := svc.Download(context.Background(), nil, 5)
		require.NoError(t, err)
		defer result.Stream.Close()

		assert.Equal(t, "image/jpeg", result.ContentType)
		assert.Equal(t, int64(5), result.Size)
		assert.Equal(t, "1700000000000-sunset.jpg", result.Filename)
	})

	t.Run("Missing post is not found", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}

		svc := NewPostService(repo, NewBlobService(noopStorage()))
		_, err := svc.Download(context.Background(), nil, 42)
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("Unreachable store is an upstream error", func(t *testing.T) {
		store := noopStorage()
		store.getFn = func(_ context.Context, _ string) (io.ReadCloser, storage.ObjectInfo, error) {
			return nil, storage.ObjectInfo{}, errors.New("no route to host")
		}

		svc := NewPostService(noopPostRepo(), NewBlobService(store))
		_, err := svc.Download(context.Background(), nil, 5)
		assertAppErrorCode(t, err, models.CodeUpstream)
	})
}
