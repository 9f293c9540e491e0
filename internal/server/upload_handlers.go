package server

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"atomvideo/internal/media"
	"atomvideo/internal/models"
	"atomvideo/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// UploadVideo handles POST /api/videos/upload (multipart field "file").
// @Summary Upload a video file
// @Description Stores the file in object storage and returns its URL for POST /videos
// @Tags videos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Video file"
// @Success 201 {object} storage.Object
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /videos/upload [post]
func (s *Server) UploadVideo(c *fiber.Ctx) error {
	if s.store == nil {
		return respondError(c, storage.ErrNotConfigured)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	if file.Size == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Uploaded file is empty"))
	}
	if maxBytes := int64(s.config.UploadMaxMB) << 20; maxBytes > 0 && file.Size > maxBytes {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("Video exceeds the upload size limit"))
	}
	contentType := file.Header.Get(fiber.HeaderContentType)
	if !isVideoMIME(contentType) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Only video files can be uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	obj, err := s.store.Put(c.UserContext(), storage.VideoKey(file.Filename), src, contentType)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// UploadThumbnail handles POST /api/videos/:id/thumbnail (multipart field "file").
// @Summary Upload a video thumbnail
// @Description Accepts JPEG, PNG or WebP, scales to fit 1280x720 and stores WebP
// @Tags videos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Video ID"
// @Param file formData file true "Image"
// @Success 200 {object} models.Video
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /videos/{id}/thumbnail [post]
func (s *Server) UploadThumbnail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if s.store == nil {
		return respondError(c, storage.ErrNotConfigured)
	}
	ctx := c.UserContext()
	userID := currentUserID(c)

	if _, err := s.videoService.AuthorizeEdit(ctx, userID, id); err != nil {
		return respondError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	if file.Size == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Uploaded file is empty"))
	}
	if file.Size > media.MaxThumbnailBytes {
		return respondError(c, media.ErrImageTooLarge)
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	encoded, err := media.Thumbnail(content, file.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return respondError(c, err)
	}

	obj, err := s.store.Put(ctx, storage.ThumbnailKey(id), bytes.NewReader(encoded), "image/webp")
	if err != nil {
		return respondError(c, err)
	}

	video, err := s.videoService.SetThumbnail(ctx, userID, id, obj.URL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(video)
}

func isVideoMIME(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/")
}
