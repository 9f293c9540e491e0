package server

import (
	"github.com/gofiber/fiber/v2"
)

type subscribeRequest struct {
	CreatorID uint  `json:"creatorId" validate:"required"`
	Notify    *bool `json:"notify"`
}

type updateSubscriptionRequest struct {
	Notify *bool `json:"notify" validate:"required"`
}

// ListSubscriptions handles GET /api/subscriptions
// @Summary Creators the caller follows
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Subscription
// @Router /subscriptions [get]
func (s *Server) ListSubscriptions(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	subs, err := s.subscriptionService.ListSubscriptions(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

// ListSubscribers handles GET /api/subscriptions/subscribers
// @Summary Users following the caller
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Subscription
// @Router /subscriptions/subscribers [get]
func (s *Server) ListSubscribers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	subs, err := s.subscriptionService.ListSubscribers(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

// GetSubscriptionStatus handles GET /api/subscriptions/status/:creatorId
// @Summary Caller's relation to a creator
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param creatorId path int true "Creator ID"
// @Success 200 {object} service.SubscriptionStatus
// @Failure 404 {object} models.ErrorResponse
// @Router /subscriptions/status/{creatorId} [get]
func (s *Server) GetSubscriptionStatus(c *fiber.Ctx) error {
	creatorID, err := s.parseID(c, "creatorId")
	if err != nil {
		return nil
	}
	status, err := s.subscriptionService.Status(c.UserContext(), currentUserID(c), creatorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// Subscribe handles POST /api/subscriptions
// @Summary Subscribe to a creator
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body subscribeRequest true "Creator and notification preference"
// @Success 201 {object} models.Subscription
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /subscriptions [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	sub, err := s.subscriptionService.Subscribe(c.UserContext(), currentUserID(c), req.CreatorID, req.Notify)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// UpdateSubscription handles PUT /api/subscriptions/:creatorId
// @Summary Toggle new-video notifications for a subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param creatorId path int true "Creator ID"
// @Param request body updateSubscriptionRequest true "Notification preference"
// @Success 200 {object} models.Subscription
// @Failure 404 {object} models.ErrorResponse
// @Router /subscriptions/{creatorId} [put]
func (s *Server) UpdateSubscription(c *fiber.Ctx) error {
	creatorID, err := s.parseID(c, "creatorId")
	if err != nil {
		return nil
	}
	var req updateSubscriptionRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	sub, err := s.subscriptionService.SetNotify(c.UserContext(), currentUserID(c), creatorID, *req.Notify)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// Unsubscribe handles DELETE /api/subscriptions/:creatorId
// @Summary Unsubscribe from a creator
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param creatorId path int true "Creator ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /subscriptions/{creatorId} [delete]
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	creatorID, err := s.parseID(c, "creatorId")
	if err != nil {
		return nil
	}
	if err := s.subscriptionService.Unsubscribe(c.UserContext(), currentUserID(c), creatorID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unsubscribed"})
}
