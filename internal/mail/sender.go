package mail

import (
	"fmt"
	"net/smtp"

	"workspace-service/pkg/config"
)

// Sender delivers one-time signup codes. Fire-and-forget from the caller's
// perspective; delivery failures are logged, never surfaced to the client.
type Sender interface {
	SendOneTimeCode(email string, code int) error
}

// SMTPSender sends codes through a plain SMTP relay
type SMTPSender struct {
	cfg *config.SMTPConfig
}

func NewSMTPSender(cfg *config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendOneTimeCode(email string, code int) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your verification code\r\n\r\nYour verification code is %06d. It expires in 5 minutes.\r\n",
		s.cfg.From, email, code))

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	return smtp.SendMail(addr, auth, s.cfg.From, []string{email}, msg)
}
