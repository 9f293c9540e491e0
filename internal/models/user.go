// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an Atom Video account. Password is empty for OAuth-only accounts.
// Uniqueness covers live rows only, so a deleted account's email and provider
// ids can sign up again.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Email      string         `gorm:"not null;uniqueIndex:idx_users_email,where:deleted_at IS NULL" json:"email,omitempty"`
	Username   string         `gorm:"not null;uniqueIndex:idx_users_username,where:deleted_at IS NULL" json:"username"`
	Password   string         `json:"-"`
	GoogleID   *string        `gorm:"uniqueIndex:idx_users_google_id,where:deleted_at IS NULL" json:"-"`
	GitHubID   *string        `gorm:"column:github_id;uniqueIndex:idx_users_github_id,where:deleted_at IS NULL" json:"-"`
	Avatar     string         `gorm:"type:text" json:"avatar"`
	Bio        string         `json:"bio"`
	Role       Role           `gorm:"type:varchar(16);not null;default:user" json:"role"`
	IsVerified bool           `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether the account can log in with email and password.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// LinkedProviders lists the OAuth providers attached to the account.
func (u *User) LinkedProviders() []string {
	out := make([]string, 0, 2)
	if u.GoogleID != nil {
		out = append(out, "google")
	}
	if u.GitHubID != nil {
		out = append(out, "github")
	}
	return out
}
