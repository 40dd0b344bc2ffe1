package services

import (
	"fmt"

	"github.com/rychle-ryce/rychle-ryce-api/config"
	"gopkg.in/gomail.v2"
)

// EmailService is the notification collaborator. Delivery is fire-and-forget
// from the caller's perspective: a failed send is logged, never surfaced as a
// request failure.
type EmailService interface {
	// SendVerificationEmail delivers the email-verification link to a new user
	SendVerificationEmail(toEmail, name, token string) error
}

// SMTPEmailService implements EmailService over SMTP
type SMTPEmailService struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

var emailServiceInstance EmailService

// InitEmailService initializes the email service with the SMTP backend
func InitEmailService(cfg *config.Config) EmailService {
	emailServiceInstance = NewSMTPEmailService(cfg)
	return emailServiceInstance
}

// GetEmailService returns the initialized email service instance
func GetEmailService() EmailService {
	return emailServiceInstance
}

// SetEmailService sets the email service instance (primarily for testing)
func SetEmailService(service EmailService) {
	emailServiceInstance = service
}

// NewSMTPEmailService creates a new SMTP-backed email service
func NewSMTPEmailService(cfg *config.Config) *SMTPEmailService {
	return &SMTPEmailService{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:    cfg.FromEmail,
		baseURL: cfg.BaseURL,
	}
}

// SendVerificationEmail sends the verification link for a freshly registered account
func (s *SMTPEmailService) SendVerificationEmail(toEmail, name, token string) error {
	verifyURL := fmt.Sprintf("%s/api/v1/verify-email/%s", s.baseURL, token)

	html := fmt.Sprintf(
		"<h3>Verify your email</h3>"+
			"<p>Hi %s, click the link below to finish your registration:</p>"+
			"<a href=%q>%s</a>",
		name, verifyURL, verifyURL,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Confirm your email – Rychlé Rýče")
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}
