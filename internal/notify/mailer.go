package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/safecircle/server/internal/config"
)

const otpSubject = "Your OTP Code"

// Mailer delivers OTP codes by email over SMTP
type Mailer struct {
	addr     string
	host     string
	from     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates an SMTP mailer
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		host:     cfg.Host,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		send:     smtp.SendMail,
	}
}

// SendOTP emails the code to the account holder
func (m *Mailer) SendOTP(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	msg := otpMessage(m.from, email, code)
	if err := m.send(m.addr, auth, m.from, []string{email}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func otpMessage(from, to, code string) []byte {
	body := fmt.Sprintf("Your OTP is: %s. It expires in 10 minutes.", code)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		from, to, otpSubject, body))
}
