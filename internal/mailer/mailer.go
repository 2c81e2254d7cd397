// Package mailer delivers authentication codes by email
package mailer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrMissingParams is returned when the recipient or code is empty
var ErrMissingParams = errors.New("to and code are required")

// Sender sends an authentication code to a recipient
type Sender interface {
	SendCode(to, code string) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address shown to the recipient
	From string
}

// SMTPSender sends authentication codes over SMTP
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPSender creates an SMTP-backed sender
func NewSMTPSender(cfg Config, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}, nil
}

// codeBody renders the email body; the code expires in five minutes
func codeBody(code string) string {
	return fmt.Sprintf(`<div style="font-family:Arial;padding:24px;background:#f6f8fa;border-radius:8px;">
  <h2 style="color:#161b22;">Tu código de autenticación</h2>
  <p>Ingresa el siguiente código en la aplicación:</p>
  <div style="font-size:2rem;font-weight:bold;letter-spacing:8px;color:#0070f3;background:#fff;padding:16px;border-radius:8px;display:inline-block;">%s</div>
  <p style="margin-top:24px;color:#555;">Este código expira en 5 minutos.</p>
</div>`, code)
}

// SendCode delivers the authentication code. There is no retry: a failed
// send is reported to the caller, who is told to try again.
func (s *SMTPSender) SendCode(to, code string) error {
	if to == "" || code == "" {
		return ErrMissingParams
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("SGISI <%s>", s.from))
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Tu código de autenticación")
	m.SetBody("text/html", codeBody(code))

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("code email send failed", zap.Error(err))
		return fmt.Errorf("send code email: %w", err)
	}
	return nil
}
