package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"pledgekit-backend/internal/config"
	"pledgekit-backend/internal/logger"
)

type sendgridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
	baseURL   string
}

func NewEmailService(cfg config.SendGridConfig, baseURL string) EmailService {
	return &sendgridEmailService{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		baseURL:   baseURL,
	}
}

func (s *sendgridEmailService) SendInvitation(ctx context.Context, email, name, token, companyName string) error {
	link := fmt.Sprintf("%s/signup?invite=%s", s.baseURL, token)
	subject := fmt.Sprintf("You're invited to join %s on PledgeKit", companyName)
	plainText := fmt.Sprintf("You've been invited to join %s. Accept the invitation: %s", companyName, link)
	htmlContent := fmt.Sprintf(`
		<p>You've been invited to join <strong>%s</strong> on PledgeKit.</p>
		<p><a href="%s">Accept the invitation</a></p>`, companyName, link)
	return s.send(ctx, email, name, subject, plainText, htmlContent)
}

func (s *sendgridEmailService) SendConfirmation(ctx context.Context, email, name, token string) error {
	link := fmt.Sprintf("%s/confirm?token=%s", s.baseURL, token)
	subject := "Confirm your PledgeKit email address"
	plainText := fmt.Sprintf("Confirm your email address: %s", link)
	htmlContent := fmt.Sprintf(`
		<p>Welcome to PledgeKit!</p>
		<p><a href="%s">Confirm your email address</a></p>`, link)
	return s.send(ctx, email, name, subject, plainText, htmlContent)
}

func (s *sendgridEmailService) SendPrivateAccessApproved(ctx context.Context, email, name, companyName string) error {
	subject := fmt.Sprintf("Your access request to %s was approved", companyName)
	plainText := fmt.Sprintf("Your request for access to %s's private projects has been approved.", companyName)
	htmlContent := fmt.Sprintf(`
		<p>Your request for access to <strong>%s</strong>'s private projects has been approved.</p>
		<p><a href="%s/projects">Browse projects</a></p>`, companyName, s.baseURL)
	return s.send(ctx, email, name, subject, plainText, htmlContent)
}

func (s *sendgridEmailService) SendPledgeReceipt(ctx context.Context, email, name, projectTitle string, amountCents int64) error {
	amount := fmt.Sprintf("$%.2f", float64(amountCents)/100)
	subject := fmt.Sprintf("Your pledge to %s", projectTitle)
	plainText := fmt.Sprintf("Thank you! Your pledge of %s to %s is confirmed.", amount, projectTitle)
	htmlContent := fmt.Sprintf(`
		<p>Thank you! Your pledge of <strong>%s</strong> to <strong>%s</strong> is confirmed.</p>`, amount, projectTitle)
	return s.send(ctx, email, name, subject, plainText, htmlContent)
}

func (s *sendgridEmailService) send(ctx context.Context, to, toName, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	client := sendgrid.NewSendClient(s.apiKey)
	logger.ExternalServiceCall("sendgrid", "Send", "subject", subject)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		logger.ExternalServiceResult("sendgrid", "Send", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "Send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "Send", nil)
	return nil
}
