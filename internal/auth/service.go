package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/safecircle/server/internal/logger"
	"github.com/safecircle/server/internal/model"
	"github.com/safecircle/server/internal/repo"
)

// CodeSender delivers an issued code to the account holder
type CodeSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// AuthService orchestrates OTP issuance and account verification
type AuthService struct {
	ledger   Ledger
	accounts repo.AccountRepo
	sender   CodeSender
}

// NewAuthService creates a new auth service
func NewAuthService(ledger Ledger, accounts repo.AccountRepo, sender CodeSender) *AuthService {
	return &AuthService{
		ledger:   ledger,
		accounts: accounts,
		sender:   sender,
	}
}

// RequestOTP creates the account on first use, issues a fresh code and sends it.
// A delivery failure is logged and does not fail the request. The issued code is
// returned so dev mode can echo it.
func (s *AuthService) RequestOTP(ctx context.Context, email, name, phone string) (string, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" || phone == "" {
		return "", fmt.Errorf("%w: email and phone required", model.ErrValidation)
	}

	if _, err := s.accounts.GetOrCreate(ctx, email, strings.TrimSpace(name), phone); err != nil {
		return "", fmt.Errorf("failed to get or create account: %w", err)
	}

	code, err := s.ledger.Issue(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to issue otp: %w", err)
	}

	if err := s.sender.SendOTP(ctx, email, code); err != nil {
		logger.Warn("otp delivery failed", logger.Email("email", email), logger.Err(err))
	} else {
		logger.Info("otp sent", logger.Email("email", email))
	}
	return code, nil
}

// VerifyOTP consumes the code and marks the account verified.
// The code is checked before the account lookup, so an unknown account with
// no outstanding code reports ErrInvalidOrExpired.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (model.Account, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)

	if err := s.ledger.Validate(ctx, email, code); err != nil {
		return model.Account{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return model.Account{}, err
	}
	if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
		return model.Account{}, fmt.Errorf("failed to mark verified: %w", err)
	}
	account.Verified = true
	return account, nil
}
