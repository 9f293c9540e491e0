package service

import (
	"context"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"
)

type SubscriptionService struct {
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
	events   Events
}

// SubscriptionStatus describes the caller's relation to a creator.
type SubscriptionStatus struct {
	Subscribed  bool  `json:"subscribed"`
	Notify      bool  `json:"notify"`
	Subscribers int64 `json:"subscribers"`
}

func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	events Events,
) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, userRepo: userRepo, events: events}
}

// Subscribe follows creatorID. notify defaults to true.
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID, creatorID uint, notify *bool) (*models.Subscription, error) {
	if creatorID == 0 {
		return nil, models.NewValidationError("creatorId is required")
	}
	if subscriberID == creatorID {
		return nil, models.NewValidationError("You cannot subscribe to yourself")
	}
	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		SubscriberID: subscriberID,
		CreatorID:    creatorID,
		Notify:       notify == nil || *notify,
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	sub.Creator = creator

	if s.events != nil {
		s.events.Subscribed(ctx, sub)
	}
	return sub, nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, creatorID uint) error {
	return s.subRepo.Delete(ctx, subscriberID, creatorID)
}

func (s *SubscriptionService) SetNotify(ctx context.Context, subscriberID, creatorID uint, notify bool) (*models.Subscription, error) {
	if err := s.subRepo.UpdateNotify(ctx, subscriberID, creatorID, notify); err != nil {
		return nil, err
	}
	return s.subRepo.Get(ctx, subscriberID, creatorID)
}

func (s *SubscriptionService) Status(ctx context.Context, subscriberID, creatorID uint) (*SubscriptionStatus, error) {
	if _, err := s.userRepo.GetByID(ctx, creatorID); err != nil {
		return nil, err
	}
	count, err := s.subRepo.CountByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	status := &SubscriptionStatus{Subscribers: count}

	sub, err := s.subRepo.Get(ctx, subscriberID, creatorID)
	switch {
	case err == nil:
		status.Subscribed = true
		status.Notify = sub.Notify
	case models.IsCode(err, models.CodeNotFound):
	default:
		return nil, err
	}
	return status, nil
}

// ListSubscriptions lists the creators userID follows.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID uint, limit, offset int) ([]models.Subscription, error) {
	return s.subRepo.ListBySubscriber(ctx, userID, limit, offset)
}

// ListSubscribers lists the users following userID.
func (s *SubscriptionService) ListSubscribers(ctx context.Context, userID uint, limit, offset int) ([]models.Subscription, error) {
	return s.subRepo.ListByCreator(ctx, userID, limit, offset)
}
