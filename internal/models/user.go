// Package models contains data structures for the application's domain models.
package models

import "time"

// Role defines what a user is allowed to do with posts.
type Role string

const (
	// RoleCreator may publish posts and owns what it publishes.
	RoleCreator Role = "creator"
	// RoleViewer may browse, like and comment only.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleViewer
}

// User represents an account in the photostream application. The email is
// normalized (lowercased, trimmed) before it is stored and is guarded by a
// unique index; the role is assigned at signup and never changes.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
