// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"photostream/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls how much data gets seeded.
type Options struct {
	Creators        int
	Viewers         int
	PostsPerCreator int
	CommentsPerPost int
	// MaxDays spreads created_at timestamps over this many days back.
	MaxDays int
	// Password is assigned to every seeded account (plain, hashed on insert).
	Password string
}

// DefaultOptions returns a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Creators:        3,
		Viewers:         10,
		PostsPerCreator: 5,
		CommentsPerPost: 4,
		MaxDays:         60,
		Password:        "SeededPass12!@",
	}
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// spreadBack returns a timestamp up to opts.MaxDays in the past.
func (f *Factory) spreadBack() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 60
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}

// CreateUser persists a user with the given role and the shared seed password.
func (f *Factory) CreateUser(role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(f.opts.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    gofakeit.Email(),
		Password: string(hash),
		Role:     role,
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a post owned by user with a placeholder image reference.
func (f *Factory) CreatePost(user *models.User) (*models.Post, error) {
	key := fmt.Sprintf("%d-%s.jpg", f.spreadBack().UnixMilli(), gofakeit.UUID())
	post := &models.Post{
		Title:       gofakeit.Sentence(4),
		Caption:     gofakeit.Paragraph(1, 2, 8, " "),
		Location:    gofakeit.City(),
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		BlobKey:     key,
		ContentType: "image/jpeg",
		UserID:      user.ID,
		CreatedAt:   f.spreadBack(),
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Text:      gofakeit.Sentence(8),
		CreatedAt: f.spreadBack(),
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// LikePost records a like; an already-present like is not an error.
func (f *Factory) LikePost(user *models.User, post *models.Post) error {
	return f.db.Exec(
		"INSERT INTO likes (user_id, post_id, created_at) VALUES (?, ?, NOW()) ON CONFLICT (user_id, post_id) DO NOTHING",
		user.ID, post.ID,
	).Error
}

// Run seeds a full dataset: creators with posts, viewers who like and
// comment on them.
func Run(db *gorm.DB, opts Options) error {
	f := NewFactory(db, opts)

	viewers := make([]*models.User, 0, opts.Viewers)
	for i := 0; i < opts.Viewers; i++ {
		v, err := f.CreateUser(models.RoleViewer)
		if err != nil {
			return fmt.Errorf("seed viewer: %w", err)
		}
		viewers = append(viewers, v)
	}

	for i := 0; i < opts.Creators; i++ {
		creator, err := f.CreateUser(models.RoleCreator)
		if err != nil {
			return fmt.Errorf("seed creator: %w", err)
		}

		for j := 0; j < opts.PostsPerCreator; j++ {
			post, err := f.CreatePost(creator)
			if err != nil {
				return fmt.Errorf("seed post: %w", err)
			}

			for k := 0; k < opts.CommentsPerPost && len(viewers) > 0; k++ {
				viewer := viewers[f.rng.Intn(len(viewers))]
				if _, err := f.CreateComment(viewer, post); err != nil {
					return fmt.Errorf("seed comment: %w", err)
				}
			}

			for _, viewer := range viewers {
				if f.rng.Intn(2) == 0 {
					continue
				}
				if err := f.LikePost(viewer, post); err != nil {
					return fmt.Errorf("seed like: %w", err)
				}
			}
		}
	}

	log.Printf("seeded %d creators, %d viewers", opts.Creators, opts.Viewers)
	return nil
}
