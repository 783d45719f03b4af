package service

import (
	"context"
	"strings"
	"testing"

	"photostream/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint, int) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listByPostFn: func(_ context.Context, _ uint, _ int) ([]*models.Comment, error) { return nil, nil },
	}
}

func TestCommentService_CreateComment(t *testing.T) {
	t.Run("Success trims text and attaches the author", func(t *testing.T) {
		commentRepo := noopCommentRepo()
		var created *models.Comment
		commentRepo.createFn = func(_ context.Context, comment *models.Comment) error {
			comment.ID = 3
			created = comment
			return nil
		}
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return created, nil
		}

		svc := NewCommentService(commentRepo, noopPostRepo())
		comment, err := svc.CreateComment(context.Background(), viewerPrincipal(9), 5, "  Love the light here  ")
		require.NoError(t, err)
		assert.Equal(t, "Love the light here", comment.Text)
		assert.Equal(t, uint(9), comment.UserID)
		assert.Equal(t, uint(5), comment.PostID)
	})

	t.Run("Empty text is a validation error", func(t *testing.T) {
		svc := NewCommentService(noopCommentRepo(), noopPostRepo())
		_, err := svc.CreateComment(context.Background(), viewerPrincipal(9), 5, "   ")
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("Oversized text is a validation error", func(t *testing.T) {
		svc := NewCommentService(noopCommentRepo(), noopPostRepo())
		_, err := svc.CreateComment(context.Background(), viewerPrincipal(9), 5, strings.Repeat("x", MaxCommentLen+1))
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("Missing post is not found", func(t *testing.T) {
		postRepo := noopPostRepo()
		postRepo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }

		svc := NewCommentService(noopCommentRepo(), postRepo)
		_, err := svc.CreateComment(context.Background(), viewerPrincipal(9), 42, "Hello")
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("Nil principal is unauthenticated", func(t *testing.T) {
		svc := NewCommentService(noopCommentRepo(), noopPostRepo())
		_, err := svc.CreateComment(context.Background(), nil, 5, "Hello")
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
	})
}

func TestCommentService_ListComments(t *testing.T) {
	t.Run("Returns comments for an existing post", func(t *testing.T) {
		commentRepo := noopCommentRepo()
		commentRepo.listByPostFn = func(_ context.Context, postID uint, limit int) ([]*models.Comment, error) {
			assert.Equal(t, uint(5), postID)
			return []*models.Comment{{ID: 2, Text: "Stunning"}, {ID: 1, Text: "Love it"}}, nil
		}

		svc := NewCommentService(commentRepo, noopPostRepo())
		comments, err := svc.ListComments(context.Background(), viewerPrincipal(9), 5, 100)
		require.NoError(t, err)
		assert.Len(t, comments, 2)
	})

	t.Run("Missing post is not found", func(t *testing.T) {
		postRepo := noopPostRepo()
		postRepo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }

		svc := NewCommentService(noopCommentRepo(), postRepo)
		_, err := svc.ListComments(context.Background(), viewerPrincipal(9), 42, 100)
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("Nil principal is unauthenticated", func(t *testing.T) {
		svc := NewCommentService(noopCommentRepo(), noopPostRepo())
		_, err := svc.ListComments(context.Background(), nil, 5, 100)
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
	})
}
