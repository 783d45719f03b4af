package repository

import (
	"context"
	"errors"

	"photostream/internal/cache"
	"photostream/internal/models"

	"gorm.io/gorm"
)

// MaxFeedLimit caps how many posts a single feed query returns.
const MaxFeedLimit = 50

// FeedQuery describes a feed read. Search matches title, caption and location
// as a case-insensitive substring. OwnerID, when non-zero, restricts results
// to posts owned by that user.
type FeedQuery struct {
	Search  string
	OwnerID uint
	Limit   int
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	Feed(ctx context.Context, q FeedQuery, currentUserID uint) ([]*models.Post, error)
	UpdateFields(ctx context.Context, id uint, title, caption, location string) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID, userID uint) (liked bool, likesCount int, err error)
	Exists(ctx context.Context, id uint) (bool, error)
}

type postRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewPostRepository creates a new post repository. c may be nil for uncached
// operation.
func NewPostRepository(db *gorm.DB, c *cache.Cache) PostRepository {
	return &postRepository{db: db, cache: c}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	var err error
	if currentUserID == 0 {
		err = r.cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
			return r.applyPostDetails(r.db.WithContext(ctx), 0).
				Preload("User").
				First(&post, id).Error
		})
	} else {
		err = r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
			Preload("User").
			First(&post, id).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Feed(ctx context.Context, q FeedQuery, currentUserID uint) ([]*models.Post, error) {
	limit := q.Limit
	if limit <= 0 || limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	query := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User")

	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where(
			"title ILIKE ? OR caption ILIKE ? OR location ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if q.OwnerID != 0 {
		query = query.Where("user_id = ?", q.OwnerID)
	}

	var posts []*models.Post
	if err := query.Order("created_at DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// UpdateFields changes the caption fields of a post and nothing else. The
// image reference and ownership columns are never part of the update set.
func (r *postRepository) UpdateFields(ctx context.Context, id uint, title, caption, location string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":    title,
			"caption":  caption,
			"location": location,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.cache.InvalidatePost(ctx, id)
	return nil
}

// Delete removes a post together with its comments and likes in a single
// transaction, so a half-deleted post is never observable.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	r.cache.InvalidatePost(ctx, id)
	return nil
}

// ToggleLike flips the like state for (userID, postID) atomically. The insert
// races through the unique index on (user_id, post_id): if the row already
// existed nothing is inserted and the like is removed instead. The returned
// count reflects the state after the toggle.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	res := r.db.WithContext(ctx).Exec(
		"INSERT INTO likes (user_id, post_id, created_at) VALUES (?, ?, NOW()) ON CONFLICT (user_id, post_id) DO NOTHING",
		userID, postID,
	)
	if res.Error != nil {
		return false, 0, models.NewInternalError(res.Error)
	}

	liked := res.RowsAffected > 0
	if !liked {
		del := r.db.WithContext(ctx).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Delete(&models.Like{})
		if del.Error != nil {
			return false, 0, models.NewInternalError(del.Error)
		}
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error; err != nil {
		return liked, 0, models.NewInternalError(err)
	}

	r.cache.InvalidatePost(ctx, postID)
	return liked, int(count), nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery + ", false as liked")
}
