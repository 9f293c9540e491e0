package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"atomvideo/internal/mail"
	"atomvideo/internal/middleware"

	"github.com/hibiken/asynq"
)

// MailSender delivers a rendered message.
type MailSender interface {
	Send(ctx context.Context, msg *mail.Message) error
}

// Handler processes queued tasks.
type Handler struct {
	sender MailSender
}

// NewHandler returns a Handler delivering email through sender.
func NewHandler(sender MailSender) *Handler {
	return &Handler{sender: sender}
}

// Register binds every task type to mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendEmail, h.HandleSendEmail)
}

// HandleSendEmail delivers an email:send task. Malformed payloads are not retried.
func (h *Handler) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var msg mail.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("email payload has no recipient: %w", asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, &msg); err != nil {
		middleware.Logger.WarnContext(ctx, "email delivery failed",
			"kind", msg.Kind,
			"error", err,
		)
		return err
	}
	middleware.Logger.InfoContext(ctx, "email delivered", "kind", msg.Kind)
	return nil
}
