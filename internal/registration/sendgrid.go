package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridSendEndpoint = "/v3/mail/send"

// SendGridConfig configures a SendGridMailer.
type SendGridConfig struct {
	APIKey string

	// Host overrides the API host, e.g. for tests. Defaults to https://api.sendgrid.com.
	Host string

	Logger *slog.Logger
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey string
	host   string
	logger *slog.Logger
}

// NewSendGridMailer creates a SendGrid mailer.
func NewSendGridMailer(cfg SendGridConfig) (*SendGridMailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid API key is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SendGridMailer{apiKey: cfg.APIKey, host: cfg.Host, logger: cfg.Logger}, nil
}

// Send implements Mailer. Any non-2xx response is an error.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(
		mail.NewEmail("MakeUC", msg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)

	req := sendgrid.GetRequest(m.apiKey, sendGridSendEndpoint, m.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(email)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("status", resp.StatusCode),
	)
	return nil
}
