package models

import "time"

// Tag labels videos. Names are stored lowercase.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagCount is a tag with the number of videos carrying it.
type TagCount struct {
	TagID  uint   `json:"tag_id"`
	Name   string `json:"name"`
	Videos int64  `json:"videos"`
}
