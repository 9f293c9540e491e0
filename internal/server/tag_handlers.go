package server

import (
	"github.com/gofiber/fiber/v2"
)

type createTagRequest struct {
	Name string `json:"name" validate:"required"`
}

// ListTags handles GET /api/tags
// @Summary List tags with video counts
// @Tags tags
// @Produce json
// @Success 200 {array} models.TagCount
// @Router /tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.tagService.ListTags(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// GetTag handles GET /api/tags/:id
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{id} [get]
func (s *Server) GetTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tag, err := s.tagService.GetTag(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tag)
}

// ListTagVideos handles GET /api/tags/:id/videos
// @Summary Public videos carrying a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Video
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{id}/videos [get]
func (s *Server) ListTagVideos(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	videos, err := s.tagService.ListTagVideos(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(videos)
}

// CreateTag handles POST /api/tags
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createTagRequest true "Tag"
// @Success 201 {object} models.Tag
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /tags [post]
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req createTagRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	tag, err := s.tagService.CreateTag(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// DeleteTag handles DELETE /api/tags/:id
// @Summary Delete a tag
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tag ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{id} [delete]
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.tagService.DeleteTag(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tag deleted"})
}
