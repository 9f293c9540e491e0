package server

import (
	"errors"
	"strings"
	"unicode"

	"atomvideo/internal/auth"
	"atomvideo/internal/media"
	"atomvideo/internal/middleware"
	"atomvideo/internal/models"
	"atomvideo/internal/storage"
	"atomvideo/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten means a helper already committed the response.
// Handlers return nil when they see it so the ErrorHandler does not overwrite it.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten,
// e.g. "Invalid ID" for "id" or "Invalid creator ID" for "creatorId".
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// currentUserID returns the caller set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// bindJSON decodes the body into dst and checks its validate tags.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	if err := validation.Struct(dst); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// mapServiceError picks the HTTP status for an error returned by a service.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeValidation:
			return fiber.StatusBadRequest
		case models.CodeUnauthorized:
			return fiber.StatusUnauthorized
		case models.CodeForbidden:
			return fiber.StatusForbidden
		case models.CodeNotFound:
			return fiber.StatusNotFound
		case models.CodeConflict:
			return fiber.StatusConflict
		case models.CodeUnavailable:
			return fiber.StatusServiceUnavailable
		}
		return fiber.StatusInternalServerError
	}

	switch {
	case errors.Is(err, auth.ErrAccountConflict):
		return fiber.StatusConflict
	case errors.Is(err, auth.ErrUnknownProvider):
		return fiber.StatusNotFound
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingEmail):
		return fiber.StatusBadRequest
	case errors.Is(err, media.ErrUnsupportedImage):
		return fiber.StatusBadRequest
	case errors.Is(err, media.ErrImageTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// respondError writes err with the status mapServiceError picks.
// Unexpected errors are logged and reported without their cause.
func respondError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}
