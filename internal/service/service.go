// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"

	"atomvideo/internal/mail"
	"atomvideo/internal/models"
)

// EmailDispatcher hands a rendered message to the delivery queue.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, msg *mail.Message) error
}

// Publisher pushes a persisted notification to live clients.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// FlagSource evaluates feature flags.
type FlagSource interface {
	Enabled(name string, userID uint) bool
}

// AdminCheck reports whether userID holds the admin role.
type AdminCheck func(ctx context.Context, userID uint) (bool, error)

// AdminCheckFromUsers builds an AdminCheck backed by user lookups.
func AdminCheckFromUsers(users interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}) AdminCheck {
	return func(ctx context.Context, userID uint) (bool, error) {
		if userID == 0 {
			return false, nil
		}
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return false, nil
			}
			return false, err
		}
		return u.IsAdmin(), nil
	}
}

func (check AdminCheck) allowed(ctx context.Context, actorID, ownerID uint) (bool, error) {
	if actorID != 0 && actorID == ownerID {
		return true, nil
	}
	if check == nil {
		return false, nil
	}
	return check(ctx, actorID)
}

// Events receives domain events that fan out into notifications.
// Implementations log their own failures; callers never fail because of them.
type Events interface {
	VideoPublished(ctx context.Context, video *models.Video)
	CommentAdded(ctx context.Context, video *models.Video, comment *models.Comment)
	Subscribed(ctx context.Context, sub *models.Subscription)
}
