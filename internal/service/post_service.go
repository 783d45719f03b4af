package service

import (
	"context"
	"fmt"
	"io"

	"photostream/internal/authz"
	"photostream/internal/middleware"
	"photostream/internal/models"
	"photostream/internal/observability"
	"photostream/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// PostService implements the post lifecycle: publish, browse, edit, like,
// delete, download. Every mutation is gated through the authorization policy
// before it touches the repositories.
type PostService struct {
	postRepo repository.PostRepository
	blobs    *BlobService
}

// CreatePostInput is the payload for publishing a post.
type CreatePostInput struct {
	Title    string
	Caption  string
	Location string

	Filename    string
	Image       io.Reader
	Size        int64
	ContentType string
}

// UpdatePostInput carries the caption-field replacement for a post. Nil
// fields are coerced to the empty string, not rejected.
type UpdatePostInput struct {
	PostID   uint
	Title    *string
	Caption  *string
	Location *string
}

// FeedInput describes a feed read.
type FeedInput struct {
	Search string
	Limit  int
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	PostID     uint `json:"postId"`
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// DownloadResult carries an open blob stream and the metadata needed to serve
// it. The caller owns Stream and must close it.
type DownloadResult struct {
	Stream      io.ReadCloser
	ContentType string
	Size        int64
	Filename    string
}

// NewPostService creates a new post service.
func NewPostService(postRepo repository.PostRepository, blobs *BlobService) *PostService {
	return &PostService{postRepo: postRepo, blobs: blobs}
}

// denyError translates a policy denial into the matching application error.
func denyError(d authz.Decision) error {
	if d.Reason == authz.ReasonUnauthenticated {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return models.NewForbiddenError("You do not have permission to perform this action")
}

func validateCaptionFields(title, caption, location string) error {
	if len(title) > models.MaxTitleLen {
		return models.NewValidationError(fmt.Sprintf("Title must be at most %d characters", models.MaxTitleLen))
	}
	if len(location) > models.MaxLocationLen {
		return models.NewValidationError(fmt.Sprintf("Location must be at most %d characters", models.MaxLocationLen))
	}
	if len(caption) > models.MaxCaptionLen {
		return models.NewValidationError(fmt.Sprintf("Caption must be at most %d characters", models.MaxCaptionLen))
	}
	return nil
}

// CreatePost uploads the image and publishes the post record. The blob is
// written first; if the record insert then fails the blob is left behind and
// logged, never silently lost while a record points at it.
func (s *PostService) CreatePost(ctx context.Context, principal *authz.Principal, in CreatePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost")
	defer span.End()

	if d := authz.Decide(principal, authz.ActionCreatePost, nil); !d.Allowed {
		return nil, denyError(d)
	}
	if err := validateCaptionFields(in.Title, in.Caption, in.Location); err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, models.NewValidationError("Image file is required")
	}

	blob, err := s.blobs.Store(ctx, in.Filename, in.Image, in.Size, in.ContentType)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.String("blob.key", blob.Key))

	post := &models.Post{
		Title:       in.Title,
		Caption:     in.Caption,
		Location:    in.Location,
		ImageURL:    blob.URL,
		BlobKey:     blob.Key,
		ContentType: blob.ContentType,
		UserID:      principal.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		middleware.Logger.ErrorContext(ctx, "post record insert failed after blob upload, blob orphaned",
			"blob_key", blob.Key,
			"user_id", principal.UserID,
			"error", err,
		)
		span.SetError(err)
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, principal.UserID)
}

// Feed returns matching posts, newest first. Creators are scoped to their own
// posts; viewers browse everything.
func (s *PostService) Feed(ctx context.Context, principal *authz.Principal, in FeedInput) ([]*models.Post, error) {
	if d := authz.Decide(principal, authz.ActionReadFeed, nil); !d.Allowed {
		return nil, denyError(d)
	}

	q := repository.FeedQuery{
		Search:  in.Search,
		OwnerID: authz.FeedOwnerScope(principal),
		Limit:   in.Limit,
	}
	return s.postRepo.Feed(ctx, q, principal.UserID)
}

// GetPost returns a single post enriched with like state for the principal.
func (s *PostService) GetPost(ctx context.Context, principal *authz.Principal, postID uint) (*models.Post, error) {
	if d := authz.Decide(principal, authz.ActionReadFeed, nil); !d.Allowed {
		return nil, denyError(d)
	}
	return s.postRepo.GetByID(ctx, postID, principal.UserID)
}

// UpdatePost replaces the caption fields of an owned post. Absent fields are
// written as empty strings; the asset reference and ownership never change.
func (s *PostService) UpdatePost(ctx context.Context, principal *authz.Principal, in UpdatePostInput) (*models.Post, error) {
	var currentUserID uint
	if principal != nil {
		currentUserID = principal.UserID
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID, currentUserID)
	if err != nil {
		return nil, err
	}

	if d := authz.Decide(principal, authz.ActionEditPost, &authz.Resource{OwnerID: post.UserID}); !d.Allowed {
		return nil, denyError(d)
	}

	title := deref(in.Title)
	caption := deref(in.Caption)
	location := deref(in.Location)
	if err := validateCaptionFields(title, caption, location); err != nil {
		return nil, err
	}

	if err := s.postRepo.UpdateFields(ctx, in.PostID, title, caption, location); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, in.PostID, currentUserID)
}

// DeletePost removes a post, its comments and its likes. The blob is removed
// first on a best-effort basis; a blob the store no longer has does not block
// the delete.
func (s *PostService) DeletePost(ctx context.Context, principal *authz.Principal, postID uint) error {
	span, ctx := observability.NewSpan(ctx, "PostService.DeletePost")
	defer span.End()
	span.AddAttributes(attribute.Int("post.id", int(postID)))

	var currentUserID uint
	if principal != nil {
		currentUserID = principal.UserID
	}
	post, err := s.postRepo.GetByID(ctx, postID, currentUserID)
	if err != nil {
		return err
	}

	if d := authz.Decide(principal, authz.ActionDeletePost, &authz.Resource{OwnerID: post.UserID}); !d.Allowed {
		return denyError(d)
	}

	s.blobs.DeleteIfExists(ctx, post.BlobKey)
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// ToggleLike flips the principal's like on the post and reports the new state.
func (s *PostService) ToggleLike(ctx context.Context, principal *authz.Principal, postID uint) (*LikeResult, error) {
	if d := authz.Decide(principal, authz.ActionLikeOrComment, nil); !d.Allowed {
		return nil, denyError(d)
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Post", postID)
	}

	liked, count, err := s.postRepo.ToggleLike(ctx, postID, principal.UserID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{PostID: postID, Liked: liked, LikesCount: count}, nil
}

// Download opens the post's image for streaming. No principal is required;
// post images are publicly fetchable while everything else is not.
func (s *PostService) Download(ctx context.Context, principal *authz.Principal, postID uint) (*DownloadResult, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.Download")
	defer span.End()
	span.AddAttributes(attribute.Int("post.id", int(postID)))

	if d := authz.Decide(principal, authz.ActionDownloadAsset, nil); !d.Allowed {
		return nil, denyError(d)
	}

	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, err
	}

	stream, info, err := s.blobs.Open(ctx, post.BlobKey)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = post.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &DownloadResult{
		Stream:      stream,
		ContentType: contentType,
		Size:        info.Size,
		Filename:    post.BlobKey,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
