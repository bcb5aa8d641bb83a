package services

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/charmbracelet/log"

	"rajhholding/internal/config"
	"rajhholding/internal/domain"
	"rajhholding/internal/metrics"
	apperrors "rajhholding/pkg/errors"
)

// SendFunc delivers a raw message; smtp.SendMail in production
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService sends contact notifications to the admin inbox
type EmailService struct {
	cfg    *config.EmailConfig
	send   SendFunc
	logger *log.Logger
}

// NewEmailService creates a new email service. When enabled, SMTP
// credentials and a recipient are required.
func NewEmailService(cfg *config.EmailConfig, logger *log.Logger) (*EmailService, error) {
	if cfg.Enabled {
		if cfg.SMTPHost == "" || cfg.Username == "" || cfg.Password == "" {
			return nil, apperrors.Configuration("SMTP_HOST, SMTP_USERNAME and SMTP_PASSWORD must be set when EMAIL_ENABLED")
		}
		if cfg.NotifyTo == "" {
			return nil, apperrors.Configuration("CONTACT_NOTIFY_EMAIL must be set when EMAIL_ENABLED")
		}
	}
	return &EmailService{cfg: cfg, send: smtp.SendMail, logger: logger.WithPrefix("email")}, nil
}

// IsEnabled returns whether email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.cfg.Enabled
}

// NotifyContact e-mails a submission to the admin inbox
func (s *EmailService) NotifyContact(ctx context.Context, c *domain.ContactSubmission) error {
	if !s.cfg.Enabled {
		metrics.RecordContactNotification("skipped")
		s.logger.Info("new contact submission (email disabled)", "name", c.Name, "email", c.Email)
		return nil
	}

	subject := fmt.Sprintf("New contact form submission from %s", c.Name)
	reference := c.ID
	if reference == "" {
		reference = "not stored"
	}

	textBody := fmt.Sprintf("New contact form submission\n\nName: %s\nEmail: %s\nReference: %s\n\nMessage:\n%s\n",
		c.Name, c.Email, reference, c.Message)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #8b6f3e;">New contact form submission</h2>
    <p><strong>Name:</strong> %s</p>
    <p><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
    <div style="border-left: 4px solid #8b6f3e; padding: 12px 20px; margin: 20px 0;">
      <p style="white-space: pre-wrap;">%s</p>
    </div>
    <p style="color: #6b7280; font-size: 13px;">Reference: %s</p>
  </div>
</body>
</html>`, html.EscapeString(c.Name), html.EscapeString(c.Email), html.EscapeString(c.Email),
		html.EscapeString(c.Message), html.EscapeString(reference))

	if err := s.SendHTMLEmail(s.cfg.NotifyTo, subject, htmlBody, textBody); err != nil {
		return err
	}
	metrics.RecordContactNotification("sent")
	return nil
}

// SendHTMLEmail sends an HTML email with plain text fallback
func (s *EmailService) SendHTMLEmail(to, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled {
		s.logger.Debug("email disabled, not sending", "to", to, "subject", subject)
		return nil
	}

	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}
	const boundary = "rajh-notification-boundary"

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	if htmlBody != "" {
		fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	}
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.send(addr, auth, s.cfg.FromEmail, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// sanitizeHeader strips line breaks so user input cannot inject headers
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
