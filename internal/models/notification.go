package models

import "time"

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationNewVideo      NotificationType = "new_video"
	NotificationNewComment    NotificationType = "new_comment"
	NotificationNewSubscriber NotificationType = "new_subscriber"
)

// Notification is an in-app notice for a single recipient.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	ActorID   uint             `gorm:"not null" json:"actor_id"`
	Actor     *User            `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Type      NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	VideoID   *uint            `json:"video_id,omitempty"`
	Message   string           `gorm:"type:text" json:"message"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
