package services

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"fabtrack/internal/config"
	"fabtrack/internal/logger"
)

// emailService sends operational mail over SMTP. When no SMTP host is
// configured every send becomes a logged no-op, which keeps local
// development working without a mail server.
type emailService struct {
	cfg *config.Config
}

// NewEmailService creates a new Mailer.
func NewEmailService(cfg *config.Config) Mailer {
	return &emailService{cfg: cfg}
}

func (s *emailService) SendCredentials(email, password, firstName string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nAn account has been created for you.\n\nEmail: %s\nPassword: %s\n\nPlease log in and change your password.\n",
		firstName, email, password,
	)
	return s.send(email, "Your account has been created", body)
}

func (s *emailService) SendPasswordReset(email, resetLink, firstName string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account.\n\nReset your password here: %s\n\nThis link expires in one hour. If you did not request a reset you can ignore this email.\n",
		firstName, resetLink,
	)
	return s.send(email, "Password reset request", body)
}

func (s *emailService) send(to, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		logger.Get().Infow("smtp not configured, skipping email",
			"to", to,
			"subject", subject,
		)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPassword)
	return d.DialAndSend(m)
}
