package registration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
)

//go:embed templates/verification.html
var templateFS embed.FS

var verificationTemplate = template.Must(template.ParseFS(templateFS, "templates/verification.html"))

// Message is an outbound email.
type Message struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email. Implementations log what they delivered.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailConfig holds the addresses used to build verification mail.
type MailConfig struct {
	FromAddress string // default info@makeuc.io
	ServerHost  string // public base URL of this API
	WebsiteURL  string // public base URL of the event website
}

type verificationData struct {
	FullName        string
	VerificationURL string
	CoverImageURL   string
}

// VerificationMessage renders the verification email for r.
func VerificationMessage(r *Registrant, cfg MailConfig) (Message, error) {
	from := cfg.FromAddress
	if from == "" {
		from = "info@makeuc.io"
	}

	data := verificationData{
		FullName:        r.FullName,
		VerificationURL: VerificationURL(cfg.ServerHost, r.ID),
		CoverImageURL:   strings.TrimRight(cfg.WebsiteURL, "/") + "/email/cover.png",
	}

	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render verification email: %w", err)
	}

	return Message{
		To:      r.Email,
		From:    from,
		Subject: "MakeUC registration",
		Text:    "Confirm your email with MakeUC: " + data.VerificationURL,
		HTML:    buf.String(),
	}, nil
}

// VerificationURL is the link a registrant follows to verify their email.
func VerificationURL(serverHost, id string) string {
	return strings.TrimRight(serverHost, "/") + "/registrants/verify/" + id
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message envelope.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email not delivered (log mailer)",
		slog.String("to", msg.To),
		slog.String("from", msg.From),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
