package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/donaldgifford/sale-monitor/internal/config"
)

// EmailNotifier delivers alerts over SMTP with STARTTLS.
type EmailNotifier struct {
	cfg    config.EmailConfig
	client *mail.Client
}

// NewEmailNotifier creates an SMTP-backed notifier from config.
func NewEmailNotifier(cfg config.EmailConfig) (*EmailNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}
	return &EmailNotifier{cfg: cfg, client: client}, nil
}

// Send composes and delivers one alert email.
func (n *EmailNotifier) Send(ctx context.Context, alert Alert) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}

	msg.Subject(fmt.Sprintf("Sale Alert: %s", alert.Product.Name))
	msg.SetBodyString(mail.TypeTextPlain, alertBody(alert))

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}
	return nil
}
