package models

import "time"

// Subscription links a subscriber to a creator. The pair is unique.
type Subscription struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubscriberID uint      `gorm:"not null;uniqueIndex:idx_subscription_pair" json:"subscriber_id"`
	Subscriber   *User     `gorm:"foreignKey:SubscriberID" json:"subscriber,omitempty"`
	CreatorID    uint      `gorm:"not null;uniqueIndex:idx_subscription_pair;index" json:"creator_id"`
	Creator      *User     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Notify       bool      `gorm:"not null;default:true" json:"notify"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
