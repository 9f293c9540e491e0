package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"
)

const maxCommentLen = 5000

type CommentService struct {
	commentRepo repository.CommentRepository
	videos      *VideoService
	events      Events
	isAdmin     AdminCheck
}

type CreateCommentInput struct {
	UserID  uint
	VideoID uint
	Content string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	videos *VideoService,
	events Events,
	isAdmin AdminCheck,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		videos:      videos,
		events:      events,
		isAdmin:     isAdmin,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content, err := normalizeComment(in.Content)
	if err != nil {
		return nil, err
	}
	video, err := s.videos.GetVideo(ctx, in.UserID, in.VideoID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content: content,
		UserID:  in.UserID,
		VideoID: in.VideoID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	if s.events != nil && video.UserID != in.UserID {
		s.events.CommentAdded(ctx, video, created)
	}
	return created, nil
}

func (s *CommentService) ListComments(ctx context.Context, viewerID, videoID uint, limit, offset int) ([]models.Comment, error) {
	if _, err := s.videos.GetVideo(ctx, viewerID, videoID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByVideo(ctx, videoID, limit, offset)
}

// UpdateComment edits a comment. Only its author may do so.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	content, err := normalizeComment(in.Content)
	if err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("Only the author can edit this comment")
	}
	if err := s.commentRepo.UpdateContent(ctx, comment.ID, content); err != nil {
		return nil, err
	}
	comment.Content = content
	return comment, nil
}

// DeleteComment removes a comment. Authors and admins may do so.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	ok, err := s.isAdmin.allowed(ctx, in.UserID, comment.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("Only the author can delete this comment")
	}
	return s.commentRepo.Delete(ctx, comment)
}

func normalizeComment(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", models.NewValidationError("content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "", models.NewValidationError("content must be at most 5000 characters")
	}
	return content, nil
}
