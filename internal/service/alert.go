package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"intranet-lending/internal/logger"
)

const sendGridHost = "https://api.sendgrid.com"

type sendGridAlertService struct {
	apiKey     string
	host       string
	from       *mail.Email
	recipients []string
}

// NewAlertService sends operator alerts through SendGrid. Without an API key
// or recipients alerts are only logged.
func NewAlertService(apiKey, fromEmail, fromName string, recipients []string) AlertService {
	return newAlertService(apiKey, sendGridHost, fromEmail, fromName, recipients)
}

func newAlertService(apiKey, host, fromEmail, fromName string, recipients []string) *sendGridAlertService {
	return &sendGridAlertService{
		apiKey:     apiKey,
		host:       host,
		from:       mail.NewEmail(fromName, fromEmail),
		recipients: recipients,
	}
}

func (s *sendGridAlertService) SendAlert(ctx context.Context, subject, body string) error {
	if s.apiKey == "" || len(s.recipients) == 0 {
		logger.Warn("Alert not delivered, no alert channel configured", "subject", subject, "body", body)
		return nil
	}

	message := mail.NewV3Mail()
	message.SetFrom(s.from)
	message.Subject = subject
	p := mail.NewPersonalization()
	for _, to := range s.recipients {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", body))

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.Info("Alert sent", "subject", subject, "recipients", len(s.recipients))
	return nil
}
