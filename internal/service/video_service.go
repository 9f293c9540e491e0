package service

import (
	"context"
	"strings"

	"atomvideo/internal/models"
	"atomvideo/internal/observability"
	"atomvideo/internal/repository"
	"atomvideo/internal/validation"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 5000
)

type VideoService struct {
	videoRepo repository.VideoRepository
	tagRepo   repository.TagRepository
	userRepo  repository.UserRepository
	events    Events
	isAdmin   AdminCheck
}

type CreateVideoInput struct {
	UserID       uint
	Title        string
	Description  string
	URL          string
	ThumbnailURL string
	Duration     int
	Visibility   models.Visibility
	Tags         []string
}

// UpdateVideoInput carries optional changes; nil fields are left as is.
type UpdateVideoInput struct {
	UserID      uint
	VideoID     uint
	Title       *string
	Description *string
	URL         *string
	Duration    *int
	Visibility  *models.Visibility
}

// LikeState is the caller's like status after a like or unlike.
type LikeState struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

func NewVideoService(
	videoRepo repository.VideoRepository,
	tagRepo repository.TagRepository,
	userRepo repository.UserRepository,
	events Events,
	isAdmin AdminCheck,
) *VideoService {
	return &VideoService{
		videoRepo: videoRepo,
		tagRepo:   tagRepo,
		userRepo:  userRepo,
		events:    events,
		isAdmin:   isAdmin,
	}
}

func (s *VideoService) CreateVideo(ctx context.Context, in CreateVideoInput) (*models.Video, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, models.NewValidationError("title is required")
	case len(title) > maxTitleLen:
		return nil, models.NewValidationError("title must be at most 200 characters")
	case strings.TrimSpace(in.URL) == "":
		return nil, models.NewValidationError("url is required")
	case in.Duration <= 0:
		return nil, models.NewValidationError("duration must be greater than 0")
	case len(in.Description) > maxDescriptionLen:
		return nil, models.NewValidationError("description must be at most 5000 characters")
	case in.UserID == 0:
		return nil, models.NewValidationError("userId is required")
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, models.NewValidationError("visibility must be one of: public, unlisted, private")
	}

	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	tags, err := s.resolveTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	video := &models.Video{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		URL:          strings.TrimSpace(in.URL),
		ThumbnailURL: strings.TrimSpace(in.ThumbnailURL),
		Duration:     in.Duration,
		UserID:       in.UserID,
		Visibility:   visibility,
		Tags:         tags,
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		return nil, err
	}
	observability.VideosCreated.Inc()

	created, err := s.videoRepo.GetByID(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	if created.Visibility == models.VisibilityPublic && s.events != nil {
		s.events.VideoPublished(ctx, created)
	}
	return created, nil
}

// GetVideo returns a video. Private videos look missing to anyone but the owner and admins.
func (s *VideoService) GetVideo(ctx context.Context, viewerID, id uint) (*models.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if video.Visibility == models.VisibilityPrivate {
		ok, err := s.isAdmin.allowed(ctx, viewerID, video.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.NewNotFoundError("Video")
		}
	}
	return video, nil
}

// ListVideos lists public videos.
func (s *VideoService) ListVideos(ctx context.Context, f repository.VideoFilter) ([]models.Video, error) {
	f.IncludeHidden = false
	if f.Tag != "" {
		tag, err := validation.NormalizeTag(f.Tag)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		f.Tag = tag
	}
	switch f.Sort {
	case "", repository.SortRecent, repository.SortPopular:
	default:
		return nil, models.NewValidationError("sort must be one of: recent, popular")
	}
	return s.videoRepo.List(ctx, f)
}

func (s *VideoService) UpdateVideo(ctx context.Context, in UpdateVideoInput) (*models.Video, error) {
	video, err := s.authorize(ctx, in.UserID, in.VideoID)
	if err != nil {
		return nil, err
	}
	wasPublic := video.Visibility == models.VisibilityPublic

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("title is required")
		}
		if len(title) > maxTitleLen {
			return nil, models.NewValidationError("title must be at most 200 characters")
		}
		video.Title = title
	}
	if in.Description != nil {
		if len(*in.Description) > maxDescriptionLen {
			return nil, models.NewValidationError("description must be at most 5000 characters")
		}
		video.Description = strings.TrimSpace(*in.Description)
	}
	if in.URL != nil {
		if strings.TrimSpace(*in.URL) == "" {
			return nil, models.NewValidationError("url is required")
		}
		video.URL = strings.TrimSpace(*in.URL)
	}
	if in.Duration != nil {
		if *in.Duration <= 0 {
			return nil, models.NewValidationError("duration must be greater than 0")
		}
		video.Duration = *in.Duration
	}
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, models.NewValidationError("visibility must be one of: public, unlisted, private")
		}
		video.Visibility = *in.Visibility
	}

	if err := s.videoRepo.Update(ctx, video); err != nil {
		return nil, err
	}
	updated, err := s.videoRepo.GetByID(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	if !wasPublic && updated.Visibility == models.VisibilityPublic && s.events != nil {
		s.events.VideoPublished(ctx, updated)
	}
	return updated, nil
}

func (s *VideoService) DeleteVideo(ctx context.Context, actorID, id uint) error {
	if _, err := s.authorize(ctx, actorID, id); err != nil {
		return err
	}
	return s.videoRepo.Delete(ctx, id)
}

func (s *VideoService) RecordView(ctx context.Context, id uint) error {
	return s.videoRepo.IncrementViews(ctx, id)
}

// Like is idempotent: liking twice counts once.
func (s *VideoService) Like(ctx context.Context, userID, videoID uint) (*LikeState, error) {
	if _, err := s.GetVideo(ctx, userID, videoID); err != nil {
		return nil, err
	}
	if _, err := s.videoRepo.Like(ctx, userID, videoID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, userID, videoID)
}

// Unlike is a no-op for a video the user has not liked.
func (s *VideoService) Unlike(ctx context.Context, userID, videoID uint) (*LikeState, error) {
	if _, err := s.GetVideo(ctx, userID, videoID); err != nil {
		return nil, err
	}
	if _, err := s.videoRepo.Unlike(ctx, userID, videoID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, userID, videoID)
}

func (s *VideoService) IsLiked(ctx context.Context, userID, videoID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.videoRepo.IsLiked(ctx, userID, videoID)
}

// SetTags replaces a video's tags.
func (s *VideoService) SetTags(ctx context.Context, actorID, videoID uint, names []string) (*models.Video, error) {
	if _, err := s.authorize(ctx, actorID, videoID); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := s.videoRepo.ReplaceTags(ctx, videoID, tags); err != nil {
		return nil, err
	}
	return s.videoRepo.GetByID(ctx, videoID)
}

// AuthorizeEdit returns the video when actorID may modify it.
func (s *VideoService) AuthorizeEdit(ctx context.Context, actorID, videoID uint) (*models.Video, error) {
	return s.authorize(ctx, actorID, videoID)
}

func (s *VideoService) SetThumbnail(ctx context.Context, actorID, videoID uint, url string) (*models.Video, error) {
	if _, err := s.authorize(ctx, actorID, videoID); err != nil {
		return nil, err
	}
	if err := s.videoRepo.SetThumbnail(ctx, videoID, url); err != nil {
		return nil, err
	}
	return s.videoRepo.GetByID(ctx, videoID)
}

func (s *VideoService) authorize(ctx context.Context, actorID, videoID uint) (*models.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	ok, err := s.isAdmin.allowed(ctx, actorID, video.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewForbiddenError("Only the owner can modify this video")
	}
	return video, nil
}

func (s *VideoService) resolveTags(ctx context.Context, raw []string) ([]models.Tag, error) {
	names, err := validation.NormalizeTags(raw)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(names) == 0 {
		return []models.Tag{}, nil
	}
	return s.tagRepo.FindOrCreate(ctx, names)
}

func (s *VideoService) likeState(ctx context.Context, userID, videoID uint) (*LikeState, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	liked, err := s.videoRepo.IsLiked(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}
	return &LikeState{Liked: liked, Likes: video.Likes}, nil
}
