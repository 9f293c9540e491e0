package mail

import (
	"context"
	"errors"
	"fmt"

	"atomvideo/internal/config"
	"atomvideo/internal/observability"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP settings are missing.
var ErrNotConfigured = errors.New("SMTP is not configured")

// Dialer delivers gomail messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers messages over SMTP, throttled to a process-wide rate.
type Sender struct {
	dialer  Dialer
	from    string
	limiter *rate.Limiter
}

// NewSender builds a Sender from SMTP settings. It returns ErrNotConfigured
// when no SMTP host is set.
func NewSender(cfg *config.Config) (*Sender, error) {
	if !cfg.SMTPConfigured() {
		return nil, ErrNotConfigured
	}
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	return NewSenderWithDialer(d, cfg.SMTPSender, cfg.MailRatePerSecond), nil
}

// NewSenderWithDialer is NewSender with an explicit transport.
func NewSenderWithDialer(d Dialer, from string, perSecond float64) *Sender {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Sender{
		dialer:  d,
		from:    from,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send waits for a rate-limit slot, then delivers msg.
func (s *Sender) Send(ctx context.Context, msg *Message) error {
	if msg == nil || msg.To == "" {
		return errors.New("message has no recipient")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		observability.EmailsFailed.WithLabelValues(string(msg.Kind)).Inc()
		return fmt.Errorf("send %s email: %w", msg.Kind, err)
	}
	observability.EmailsSent.WithLabelValues(string(msg.Kind)).Inc()
	return nil
}
