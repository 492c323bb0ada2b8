package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services and handlers. Handlers map them to
// HTTP status codes with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOrExpired = errors.New("invalid or expired OTP")
	ErrCapacityExceeded = errors.New("max 3 nominees reached")
	ErrModelUnavailable = errors.New("model not loaded")
	ErrPredictionFailed = errors.New("prediction failed")
)

var (
	ErrAccountNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrNomineeNotFound = fmt.Errorf("nominee %w", ErrNotFound)
)
