package models

import (
	"time"

	"gorm.io/gorm"
)

// Visibility controls who can see a video.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// Video is an uploaded video owned by a user.
type Video struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	URL           string         `gorm:"type:text;not null" json:"url"`
	ThumbnailURL  string         `gorm:"type:text" json:"thumbnail_url"`
	Duration      int            `gorm:"not null" json:"duration"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Visibility    Visibility     `gorm:"type:varchar(16);not null;default:public;index" json:"visibility"`
	Views         int64          `gorm:"not null;default:0" json:"views"`
	Likes         int64          `gorm:"not null;default:0" json:"likes"`
	CommentsCount int64          `gorm:"not null;default:0" json:"comments_count"`
	Tags          []Tag          `gorm:"many2many:video_tags" json:"tags"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// VideoLike records that a user liked a video. The pair is unique.
type VideoLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_video_like_pair" json:"user_id"`
	VideoID   uint      `gorm:"not null;uniqueIndex:idx_video_like_pair;index" json:"video_id"`
	CreatedAt time.Time `json:"created_at"`
}
