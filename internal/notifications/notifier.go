// Package notifications fans out in-app notifications over Redis pub/sub to WebSocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"atomvideo/internal/middleware"
	"atomvideo/internal/models"

	"github.com/redis/go-redis/v9"
)

const userChannelPattern = "notifications:user:*"

// Event is the frame delivered to WebSocket clients.
type Event struct {
	Type    string               `json:"type"`
	Payload *models.Notification `json:"payload"`
}

// UserChannel is the Redis channel carrying a user's notifications.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Notifier publishes notifications into per-user Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier returns a Notifier over rdb. A nil client makes every publish a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends n to its recipient's channel.
func (n *Notifier) Publish(ctx context.Context, notification *models.Notification) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Event{Type: "notification", Payload: notification})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(notification.UserID), payload).Err()
}

// Subscribe listens on every user channel until ctx is cancelled, calling
// onMessage for each payload. Panics in onMessage are logged and swallowed.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("notification subscriber panic",
								"panic", r,
								"stack", string(debug.Stack()),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
