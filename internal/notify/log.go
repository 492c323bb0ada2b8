package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/safecircle/server/internal/logger"
)

// LogSender writes messages to the log instead of delivering them.
// It serves both as alert Sender and OTP CodeSender in development.
type LogSender struct{}

// NewLogSender creates a log-only notifier
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendSMS logs the alert and returns a generated message id
func (LogSender) SendSMS(_ context.Context, to, body string) (string, error) {
	id := uuid.NewString()
	logger.Info("sms (not delivered)",
		logger.Phone("to", to),
		logger.String("message_id", id),
		logger.String("body", body),
	)
	return id, nil
}

// SendOTP logs the code. Development only.
func (LogSender) SendOTP(_ context.Context, email, code string) error {
	logger.Info("otp email (not delivered)", logger.Email("to", email), logger.String("code", code))
	return nil
}
