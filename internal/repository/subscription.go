package repository

import (
	"context"

	"atomvideo/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository defines persistence operations for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Get(ctx context.Context, subscriberID, creatorID uint) (*models.Subscription, error)
	UpdateNotify(ctx context.Context, subscriberID, creatorID uint, notify bool) error
	Delete(ctx context.Context, subscriberID, creatorID uint) error
	ListBySubscriber(ctx context.Context, subscriberID uint, limit, offset int) ([]models.Subscription, error)
	ListByCreator(ctx context.Context, creatorID uint, limit, offset int) ([]models.Subscription, error)
	NotifiableSubscriberIDs(ctx context.Context, creatorID uint) ([]uint, error)
	CountByCreator(ctx context.Context, creatorID uint) (int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a new SubscriptionRepository implementation.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	notify := sub.Notify
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Subscriber", "Creator").Create(sub).Error; err != nil {
			return err
		}
		// The column default is true, so an explicit false needs a second write.
		if !notify {
			sub.Notify = false
			return tx.Model(sub).Update("notify", false).Error
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Already subscribed")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, subscriberID, creatorID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND creator_id = ?", subscriberID, creatorID).
		First(&sub).Error
	if err != nil {
		return nil, lookupError(err, "Subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepository) UpdateNotify(ctx context.Context, subscriberID, creatorID uint, notify bool) error {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND creator_id = ?", subscriberID, creatorID).
		Update("notify", notify)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Subscription")
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, subscriberID, creatorID uint) error {
	res := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND creator_id = ?", subscriberID, creatorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Subscription")
	}
	return nil
}

func (r *subscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID uint, limit, offset int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).Preload("Creator").
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).Offset(offset).
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListByCreator(ctx context.Context, creatorID uint, limit, offset int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).Preload("Subscriber").
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).Offset(offset).
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

// NotifiableSubscriberIDs lists subscribers of creatorID who asked to be notified.
func (r *subscriptionRepository) NotifiableSubscriberIDs(ctx context.Context, creatorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("creator_id = ? AND notify = ?", creatorID, true).
		Order("subscriber_id ASC").
		Pluck("subscriber_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *subscriptionRepository) CountByCreator(ctx context.Context, creatorID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).Where("creator_id = ?", creatorID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
