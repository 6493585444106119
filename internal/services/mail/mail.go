// Package mail sends the app's transactional email through a provider
// chosen at startup: plain SMTP or SendGrid.
package mail

import (
	"context"
	"fmt"

	"github.com/atlastours/atlas-api/internal/config"
	"github.com/atlastours/atlas-api/internal/models"
)

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Mailer composes the app's messages on top of a Sender.
type Mailer struct {
	sender Sender
}

func New(cfg config.MailConfig) *Mailer {
	var sender Sender
	switch cfg.Provider {
	case "sendgrid":
		sender = NewSendGridSender(cfg)
	default:
		sender = NewSMTPSender(cfg)
	}
	return &Mailer{sender: sender}
}

// NewWithSender is used by tests to plug a fake transport.
func NewWithSender(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

// SendWelcome greets a fresh signup and points them at their account page.
func (m *Mailer) SendWelcome(ctx context.Context, user *models.User, accountURL string) error {
	return m.sender.Send(ctx, &Message{
		To:      user.Email,
		ToName:  user.Name,
		Subject: "Welcome to Atlas Tours!",
		Text: fmt.Sprintf(
			"Hi %s,\n\nWelcome to Atlas Tours, we're glad to have you!\nManage your account here: %s\n",
			user.Name, accountURL,
		),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Welcome to Atlas Tours, we're glad to have you!</p><p><a href=%q>Manage your account</a></p>",
			user.Name, accountURL,
		),
	})
}

// SendPasswordReset mails the raw reset token URL. The token expires after
// ten minutes.
func (m *Mailer) SendPasswordReset(ctx context.Context, user *models.User, resetURL string) error {
	return m.sender.Send(ctx, &Message{
		To:      user.Email,
		ToName:  user.Name,
		Subject: "Your password reset token (valid for 10 minutes)",
		Text: fmt.Sprintf(
			"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password to: %s\nIf you didn't forget your password, please ignore this email.\n",
			user.Name, resetURL,
		),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Forgot your password? <a href=%q>Reset it here</a>. The link is valid for 10 minutes.</p><p>If you didn't forget your password, please ignore this email.</p>",
			user.Name, resetURL,
		),
	})
}
