package server

import (
	"atomvideo/internal/middleware"
	"atomvideo/internal/models"

	"github.com/gofiber/fiber/v2"
)

type setFeatureFlagRequest struct {
	Value string `json:"value" validate:"required"`
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Configured values and their evaluation for the caller
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := currentUserID(c)
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}

// SetFeatureFlag handles PUT /api/admin/feature-flags/:name. Overrides last
// until the process restarts.
// @Summary Override a feature flag
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Flag name"
// @Param request body setFeatureFlagRequest true "on, off, or a percentage such as 25%"
// @Success 200 {object} object{raw=map[string]string}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req setFeatureFlagRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	name := c.Params("name")
	if err := s.featureFlags.Set(name, req.Value); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	middleware.Logger.InfoContext(c.UserContext(), "feature flag changed", "flag", name, "value", req.Value)
	return c.JSON(fiber.Map{"raw": s.featureFlags.Raw()})
}
