package services

import (
	"fmt"
	"html"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	fromName := os.Getenv("SENDGRID_FROM_NAME")

	client := sendgrid.NewSendClient(apiKey)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendReport delivers a composed manager report. Returns the provider
// message ID used to correlate with the delivery log.
func (s *EmailService) SendReport(toName, toEmail, subject, text, html string) (string, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, text, html)
	response, err := s.client.Send(message)
	if err != nil {
		return "", fmt.Errorf("failed to send report email: %w", err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("email provider rejected report (status %d): %s", response.StatusCode, response.Body)
	}
	return extractMessageID(response.Headers), nil
}

// SendOutreachEmail sends a sales email to a lead and returns the
// provider message ID so later replies can be threaded back to it.
func (s *EmailService) SendOutreachEmail(toName, toEmail, subject, body string) (string, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, body, renderOutreachHTML(body))
	response, err := s.client.Send(message)
	if err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("email provider rejected message to %s (status %d): %s", toEmail, response.StatusCode, response.Body)
	}
	return extractMessageID(response.Headers), nil
}

// renderOutreachHTML wraps a plain-text email body in the HTML shell
// used for outreach sends. The body is drafted text, not markup, so it
// is escaped; pre-wrap keeps the original line breaks.
func renderOutreachHTML(body string) string {
	return fmt.Sprintf(
		"<div style=\"font-family: Arial, sans-serif; white-space: pre-wrap;\">%s</div>",
		html.EscapeString(body),
	)
}

// extractMessageID pulls the X-Message-Id header SendGrid returns on
// accepted sends.
func extractMessageID(headers map[string][]string) string {
	for key, values := range headers {
		if key == "X-Message-Id" || key == "X-Message-ID" {
			if len(values) > 0 {
				return values[0]
			}
		}
	}
	return ""
}
