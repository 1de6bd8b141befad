// Package mail delivers outbound email through SendGrid, or to the log when
// no API key is configured.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/quillhub/blog/internal/core/ports"
)

// Config holds the sender identity and SendGrid credentials.
type Config struct {
	APIKey   string
	From     string
	FromName string
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer implements ports.Mailer.
type SendGridMailer struct {
	client sendClient
	from   *sgmail.Email
	log    zerolog.Logger
}

func NewSendGridMailer(cfg Config, log zerolog.Logger) *SendGridMailer {
	return newSendGridMailer(sendgrid.NewSendClient(cfg.APIKey), cfg, log)
}

func newSendGridMailer(client sendClient, cfg Config, log zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: client,
		from:   sgmail.NewEmail(cfg.FromName, cfg.From),
		log:    log,
	}
}

// Send delivers msg synchronously. Any non-2xx response is an error.
func (m *SendGridMailer) Send(ctx context.Context, msg ports.Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.To)
	email := sgmail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.log.Debug().Int("status", resp.StatusCode).Str("subject", msg.Subject).Msg("email accepted")
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used in
// development when no API key is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg ports.Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("email not sent: no mail provider configured")
	return nil
}

// New picks SendGrid when an API key is set and the log mailer otherwise.
func New(cfg Config, log zerolog.Logger) ports.Mailer {
	if cfg.APIKey == "" {
		return NewLogMailer(log)
	}
	return NewSendGridMailer(cfg, log)
}
