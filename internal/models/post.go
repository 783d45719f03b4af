// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Field length limits enforced at the service boundary.
const (
	MaxTitleLen    = 120
	MaxLocationLen = 120
	MaxCaptionLen  = 2000
)

// Post represents a published image with its metadata. The image itself lives
// in the external blob store; ImageURL and BlobKey reference it and are set
// exactly once at creation. UserID is the owning creator and is immutable.
type Post struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:120" json:"title"`
	Caption     string `gorm:"size:2000" json:"caption"`
	Location    string `gorm:"size:120" json:"location"`
	ImageURL    string `gorm:"not null" json:"image_url"`
	BlobKey     string `gorm:"not null" json:"blob_key"`
	ContentType string `gorm:"size:128" json:"content_type"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	User        User   `gorm:"foreignKey:UserID" json:"user"`
	// LikesCount and CommentsCount are not persisted; computed at query time
	LikesCount    int `gorm:"->" json:"likes_count"`
	CommentsCount int `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Like records that a user liked a post. The composite unique index is what
// makes a user appear at most once in a post's like set; the toggle operation
// relies on it via INSERT ... ON CONFLICT DO NOTHING.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
