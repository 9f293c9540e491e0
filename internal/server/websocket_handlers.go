package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"atomvideo/internal/middleware"
	"atomvideo/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

func wsTicketKey(ticket string) string {
	return fmt.Sprintf("ws_ticket:%s", ticket)
}

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on a
// WebSocket handshake, so they trade their bearer token for a single-use ticket.
// @Summary Issue a WebSocket ticket
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError("Live notifications are unavailable"))
	}
	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketKey(ticket), currentUserID(c), wsTicketTTL).Err(); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// redeemWSTicket consumes ticket and returns the user it was issued to.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, error) {
	if s.redis == nil {
		return 0, errors.New("ticket store unavailable")
	}
	raw, err := s.redis.GetDel(ctx, wsTicketKey(ticket)).Result()
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("malformed ticket owner %q", raw)
	}
	return uint(id), nil
}

// WebSocketUpgrade rejects plain HTTP requests to WebSocket routes with 426.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// NotificationsWebSocket handles GET /api/ws. The socket only carries
// server-to-client notification frames.
// @Summary Live notifications
// @Tags notifications
// @Param ticket query string false "Ticket from POST /ws/ticket"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) NotificationsWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		middleware.Logger.Info("websocket connected", "user_id", userID, "connections", s.hub.Connections(userID))

		go client.WritePump()
		client.ReadPump()
	})
}
