package service

import (
	"context"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"
	"atomvideo/internal/validation"
)

type TagService struct {
	tagRepo   repository.TagRepository
	videoRepo repository.VideoRepository
}

func NewTagService(tagRepo repository.TagRepository, videoRepo repository.VideoRepository) *TagService {
	return &TagService{tagRepo: tagRepo, videoRepo: videoRepo}
}

func (s *TagService) ListTags(ctx context.Context) ([]models.TagCount, error) {
	return s.tagRepo.List(ctx)
}

func (s *TagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	return s.tagRepo.GetByID(ctx, id)
}

func (s *TagService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	normalized, err := validation.NormalizeTag(name)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tag := &models.Tag{Name: normalized}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) DeleteTag(ctx context.Context, id uint) error {
	return s.tagRepo.Delete(ctx, id)
}

// ListTagVideos lists public videos carrying the tag.
func (s *TagService) ListTagVideos(ctx context.Context, id uint, limit, offset int) ([]models.Video, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.videoRepo.List(ctx, repository.VideoFilter{Tag: tag.Name, Limit: limit, Offset: offset})
}
