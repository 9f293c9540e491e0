package service

import (
	"context"
	"fmt"
	"strings"

	"atomvideo/internal/featureflags"
	"atomvideo/internal/mail"
	"atomvideo/internal/middleware"
	"atomvideo/internal/models"
	"atomvideo/internal/observability"
	"atomvideo/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// NotificationService persists notifications, pushes them to live clients and,
// for new videos, emails subscribers. It implements Events.
type NotificationService struct {
	notifRepo   repository.NotificationRepository
	subRepo     repository.SubscriptionRepository
	userRepo    repository.UserRepository
	publisher   Publisher
	emails      EmailDispatcher
	flags       FlagSource
	frontendURL string
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	subRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	publisher Publisher,
	emails EmailDispatcher,
	flags FlagSource,
	frontendURL string,
) *NotificationService {
	return &NotificationService{
		notifRepo:   notifRepo,
		subRepo:     subRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		emails:      emails,
		flags:       flags,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

var _ Events = (*NotificationService)(nil)

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.notifRepo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.notifRepo.Delete(ctx, userID, id)
}

// VideoPublished notifies every subscriber of the creator who opted in.
func (s *NotificationService) VideoPublished(ctx context.Context, video *models.Video) {
	ctx, span := observability.StartSpan(ctx, "notifications", "video_published",
		attribute.Int64("video.id", int64(video.ID)))
	ids, err := s.subRepo.NotifiableSubscriberIDs(ctx, video.UserID)
	defer func() { observability.EndSpan(span, err) }()
	if err != nil {
		s.logFailure(ctx, models.NotificationNewVideo, err)
		return
	}
	span.SetAttributes(attribute.Int("notifications.recipients", len(ids)))
	if len(ids) == 0 {
		return
	}

	creator := creatorName(video)
	videoID := video.ID
	batch := make([]*models.Notification, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, &models.Notification{
			UserID:  id,
			ActorID: video.UserID,
			Type:    models.NotificationNewVideo,
			VideoID: &videoID,
			Message: fmt.Sprintf("%s published %q", creator, video.Title),
		})
	}
	if !s.deliver(ctx, batch) {
		return
	}

	for _, n := range batch {
		if s.flags == nil || !s.flags.Enabled(featureflags.EmailNotifications, n.UserID) {
			continue
		}
		s.emailNewVideo(ctx, n.UserID, creator, video)
	}
}

// CommentAdded notifies the video owner.
func (s *NotificationService) CommentAdded(ctx context.Context, video *models.Video, comment *models.Comment) {
	if video.UserID == comment.UserID {
		return
	}
	actor := "Someone"
	if comment.User != nil {
		actor = comment.User.Username
	}
	videoID := video.ID
	s.deliver(ctx, []*models.Notification{{
		UserID:  video.UserID,
		ActorID: comment.UserID,
		Type:    models.NotificationNewComment,
		VideoID: &videoID,
		Message: fmt.Sprintf("%s commented on %q", actor, video.Title),
	}})
}

// Subscribed notifies the creator of a new subscriber.
func (s *NotificationService) Subscribed(ctx context.Context, sub *models.Subscription) {
	actor := "Someone"
	if u, err := s.userRepo.GetByID(ctx, sub.SubscriberID); err == nil {
		actor = u.Username
	}
	s.deliver(ctx, []*models.Notification{{
		UserID:  sub.CreatorID,
		ActorID: sub.SubscriberID,
		Type:    models.NotificationNewSubscriber,
		Message: fmt.Sprintf("%s subscribed to you", actor),
	}})
}

// deliver persists the batch and publishes each row. It reports whether persisting succeeded.
func (s *NotificationService) deliver(ctx context.Context, batch []*models.Notification) bool {
	if err := s.notifRepo.CreateBatch(ctx, batch); err != nil {
		s.logFailure(ctx, batch[0].Type, err)
		return false
	}
	observability.NotificationsCreated.WithLabelValues(string(batch[0].Type)).Add(float64(len(batch)))

	if s.publisher == nil {
		return true
	}
	for _, n := range batch {
		if err := s.publisher.Publish(ctx, n); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish notification",
				"notification_id", n.ID,
				"recipient_id", n.UserID,
				"error", err,
			)
		}
	}
	return true
}

func (s *NotificationService) emailNewVideo(ctx context.Context, recipientID uint, creator string, video *models.Video) {
	if s.emails == nil {
		return
	}
	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "skipping new video email", "recipient_id", recipientID, "error", err)
		return
	}
	link := fmt.Sprintf("%s/videos/%d", s.frontendURL, video.ID)
	msg, err := mail.NewVideoMessage(recipient.Email, recipient.Username, creator, video.Title, link)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to render new video email", "error", err)
		return
	}
	if err := s.emails.Dispatch(ctx, msg); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to queue new video email", "recipient_id", recipientID, "error", err)
	}
}

func (s *NotificationService) logFailure(ctx context.Context, typ models.NotificationType, err error) {
	middleware.Logger.ErrorContext(ctx, "failed to create notifications", "type", typ, "error", err)
}

func creatorName(video *models.Video) string {
	if video.User != nil && video.User.Username != "" {
		return video.User.Username
	}
	return "A creator you follow"
}
