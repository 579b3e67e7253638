// Package notify sends customer email and live order updates from a pair
// of actors so request handlers never wait on a mail provider.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/example/bakery/pkg/config"
	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	MailPostmark = "postmark"
	MailSendGrid = "sendgrid"
	MailLog      = "log"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns the backend named by cfg.Provider.
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case MailPostmark:
		if cfg.APIToken == "" || cfg.From == "" {
			return nil, fmt.Errorf("mail.api_token and mail.from are required for %s", MailPostmark)
		}
		return NewPostmarkMailer(cfg), nil
	case MailSendGrid:
		if cfg.APIToken == "" || cfg.From == "" {
			return nil, fmt.Errorf("mail.api_token and mail.from are required for %s", MailSendGrid)
		}
		return NewSendGridMailer(cfg), nil
	case MailLog, "":
		return &LogMailer{logger: logger.Named("mail")}, nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
}

type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

func NewPostmarkMailer(cfg *config.MailConfig) *PostmarkMailer {
	return &PostmarkMailer{
		client: postmark.NewClient(cfg.APIToken, ""),
		from:   formatFrom(cfg),
	}
}

func (m *PostmarkMailer) Send(_ context.Context, msg Message) error {
	resp, err := m.client.SendEmail(postmark.Email{
		From:     m.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTML,
		TextBody: msg.Text,
		Tag:      msg.Tag,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.ErrorCode != 0 {
		return fmt.Errorf("postmark rejected email (%d): %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

func NewSendGridMailer(cfg *config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.APIToken),
		from:   sgmail.NewEmail(cfg.StoreName, cfg.From),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	message := sgmail.NewSingleEmail(m.from, msg.Subject, sgmail.NewEmail("", msg.To), msg.Text, msg.HTML)
	if msg.Tag != "" {
		message.AddCategories(msg.Tag)
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email (%d): %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("Email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag))
	return nil
}

func formatFrom(cfg *config.MailConfig) string {
	if cfg.StoreName == "" {
		return cfg.From
	}
	return (&mail.Address{Name: cfg.StoreName, Address: cfg.From}).String()
}
