package service

import (
	"context"
	"strings"

	"photostream/internal/authz"
	"photostream/internal/models"
	"photostream/internal/repository"
)

// MaxCommentLen bounds the length of a single comment.
const MaxCommentLen = 1000

// CommentService implements commenting on posts.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

// NewCommentService creates a new comment service.
func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

// CreateComment attaches a comment to an existing post. Commenting on a
// deleted or never-existing post is a not-found, indistinguishable from one
// another.
func (s *CommentService) CreateComment(ctx context.Context, principal *authz.Principal, postID uint, text string) (*models.Comment, error) {
	if d := authz.Decide(principal, authz.ActionLikeOrComment, nil); !d.Allowed {
		return nil, denyError(d)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if len(text) > MaxCommentLen {
		return nil, models.NewValidationError("Comment text is too long")
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Post", postID)
	}

	comment := &models.Comment{
		PostID: postID,
		UserID: principal.UserID,
		Text:   text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ListComments returns the newest comments on a post with their authors.
func (s *CommentService) ListComments(ctx context.Context, principal *authz.Principal, postID uint, limit int) ([]*models.Comment, error) {
	if d := authz.Decide(principal, authz.ActionReadFeed, nil); !d.Allowed {
		return nil, denyError(d)
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Post", postID)
	}

	return s.commentRepo.ListByPost(ctx, postID, limit)
}
