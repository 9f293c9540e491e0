// Package mail renders and delivers transactional email.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Kind labels a message for metrics and logs.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindNewVideo      Kind = "new_video"
)

// Message is a fully rendered email ready for delivery.
type Message struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

var (
	verificationTmpl = template.Must(template.New("verification").Parse(
		`<p>Hi {{.Username}},</p>
<p>Welcome to Atom Video. Confirm your email address to finish setting up your account:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>The link expires in 24 hours.</p>`))

	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>Hi {{.Username}},</p>
<p>Someone asked to reset the password on your Atom Video account. If it was you, choose a new one here:</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>The link expires in 1 hour. If you did not ask for this, ignore this email.</p>`))

	newVideoTmpl = template.Must(template.New("new_video").Parse(
		`<p>Hi {{.Username}},</p>
<p>{{.Creator}} just published <strong>{{.Title}}</strong>.</p>
<p><a href="{{.Link}}">Watch now</a></p>`))
)

// VerificationMessage renders the email-verification message.
func VerificationMessage(to, username, link string) (*Message, error) {
	html, err := render(verificationTmpl, map[string]string{"Username": username, "Link": link})
	if err != nil {
		return nil, err
	}
	return &Message{
		Kind:    KindVerification,
		To:      to,
		Subject: "Verify your Atom Video account",
		HTML:    html,
		Text:    fmt.Sprintf("Hi %s, verify your Atom Video account: %s", username, link),
	}, nil
}

// PasswordResetMessage renders the password-reset message.
func PasswordResetMessage(to, username, link string) (*Message, error) {
	html, err := render(resetTmpl, map[string]string{"Username": username, "Link": link})
	if err != nil {
		return nil, err
	}
	return &Message{
		Kind:    KindPasswordReset,
		To:      to,
		Subject: "Reset your Atom Video password",
		HTML:    html,
		Text:    fmt.Sprintf("Hi %s, reset your Atom Video password: %s", username, link),
	}, nil
}

// NewVideoMessage tells a subscriber that a creator published a video.
func NewVideoMessage(to, username, creator, title, link string) (*Message, error) {
	html, err := render(newVideoTmpl, map[string]string{
		"Username": username,
		"Creator":  creator,
		"Title":    title,
		"Link":     link,
	})
	if err != nil {
		return nil, err
	}
	return &Message{
		Kind:    KindNewVideo,
		To:      to,
		Subject: fmt.Sprintf("%s published a new video", creator),
		HTML:    html,
		Text:    fmt.Sprintf("%s published %q: %s", creator, title, link),
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
