package notify

import (
	"chat_platform/pkg/config"

	"gopkg.in/gomail.v2"
)

// Mailer deliver one message
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewSMTPMailer gomail dialer from config
func NewSMTPMailer(c config.SMTPConfig) Mailer {
	return gomail.NewDialer(c.Host, c.Port, c.User, c.Password)
}
