package server

import (
	"atomvideo/internal/models"
	"atomvideo/internal/repository"
	"atomvideo/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createVideoRequest struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description" validate:"max=5000"`
	URL          string            `json:"url" validate:"required"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	Duration     int               `json:"duration" validate:"gt=0"`
	Visibility   models.Visibility `json:"visibility" validate:"visibility"`
	Tags         []string          `json:"tags"`
	UserID       uint              `json:"userId"`
}

type updateVideoRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=5000"`
	URL         *string            `json:"url"`
	Duration    *int               `json:"duration" validate:"omitempty,gt=0"`
	Visibility  *models.Visibility `json:"visibility" validate:"omitempty,visibility"`
}

type setTagsRequest struct {
	Tags []string `json:"tags"`
}

// ListVideos handles GET /api/videos
// @Summary List public videos
// @Tags videos
// @Produce json
// @Param q query string false "Search title and description"
// @Param tag query string false "Tag name"
// @Param userId query int false "Owner"
// @Param sort query string false "recent or popular"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Video
// @Failure 400 {object} models.ErrorResponse
// @Router /videos [get]
func (s *Server) ListVideos(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	ownerID := c.QueryInt("userId", 0)
	if ownerID < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid user ID"))
	}

	videos, err := s.videoService.ListVideos(c.UserContext(), repository.VideoFilter{
		Query:  c.Query("q"),
		Tag:    c.Query("tag"),
		UserID: uint(ownerID),
		Sort:   c.Query("sort"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(videos)
}

// GetVideo handles GET /api/videos/:id
// @Summary Get a video
// @Tags videos
// @Produce json
// @Param id path int true "Video ID"
// @Success 200 {object} models.Video
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id} [get]
func (s *Server) GetVideo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	video, err := s.videoService.GetVideo(c.UserContext(), viewerID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}

// CreateVideo handles POST /api/videos. The caller owns the video; anonymous
// callers must name an existing owner with userId.
// @Summary Create a video
// @Tags videos
// @Accept json
// @Produce json
// @Param request body createVideoRequest true "Video"
// @Success 201 {object} models.Video
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /videos [post]
func (s *Server) CreateVideo(c *fiber.Ctx) error {
	var req createVideoRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	ownerID := req.UserID
	if callerID, ok := s.optionalUserID(c); ok {
		ownerID = callerID
	}

	video, err := s.videoService.CreateVideo(c.UserContext(), service.CreateVideoInput{
		UserID:       ownerID,
		Title:        req.Title,
		Description:  req.Description,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
		Visibility:   req.Visibility,
		Tags:         req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(video)
}

// UpdateVideo handles PUT /api/videos/:id
// @Summary Update a video
// @Tags videos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Param request body updateVideoRequest true "Changes"
// @Success 200 {object} models.Video
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id} [put]
func (s *Server) UpdateVideo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateVideoRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	video, err := s.videoService.UpdateVideo(c.UserContext(), service.UpdateVideoInput{
		UserID:      currentUserID(c),
		VideoID:     id,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Duration:    req.Duration,
		Visibility:  req.Visibility,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}

// DeleteVideo handles DELETE /api/videos/:id
// @Summary Delete a video
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id} [delete]
func (s *Server) DeleteVideo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.videoService.DeleteVideo(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Video deleted"})
}

// RecordView handles POST /api/videos/:id/view
// @Summary Count a view
// @Tags videos
// @Param id path int true "Video ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id}/view [post]
func (s *Server) RecordView(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.videoService.RecordView(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetLikeStatus handles GET /api/videos/:id/like
// @Summary Caller's like status
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Success 200 {object} service.LikeState
// @Router /videos/{id}/like [get]
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	ctx := c.UserContext()

	video, err := s.videoService.GetVideo(ctx, userID, id)
	if err != nil {
		return respondError(c, err)
	}
	liked, err := s.videoService.IsLiked(ctx, userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(service.LikeState{Liked: liked, Likes: video.Likes})
}

// LikeVideo handles POST /api/videos/:id/like
// @Summary Like a video
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Success 200 {object} service.LikeState
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id}/like [post]
func (s *Server) LikeVideo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.videoService.Like(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// UnlikeVideo handles DELETE /api/videos/:id/like
// @Summary Remove a like
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Success 200 {object} service.LikeState
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id}/like [delete]
func (s *Server) UnlikeVideo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.videoService.Unlike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// SetVideoTags handles PUT /api/videos/:id/tags
// @Summary Replace a video's tags
// @Tags videos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Param request body setTagsRequest true "Tags"
// @Success 200 {object} models.Video
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /videos/{id}/tags [put]
func (s *Server) SetVideoTags(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req setTagsRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	video, err := s.videoService.SetTags(c.UserContext(), currentUserID(c), id, req.Tags)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}
