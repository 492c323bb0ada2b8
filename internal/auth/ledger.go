package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	// OTPTTL is how long an issued code stays valid.
	OTPTTL = 10 * time.Minute

	otpMin = 100000
	otpMax = 999999
)

// Ledger stores outstanding one-time codes keyed by account email.
// Issue replaces any earlier code for the key. Validate consumes the code on
// success and returns model.ErrInvalidOrExpired otherwise.
type Ledger interface {
	Issue(ctx context.Context, key string) (code string, err error)
	Validate(ctx context.Context, key, code string) error
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// hashOTPHex returns SHA-256(key:code:salt) as hex
func hashOTPHex(key, code, salt string) string {
	return hex.EncodeToString(hashOTPBytes(key, code, salt))
}

func hashOTPBytes(key, code, salt string) []byte {
	sum := sha256.Sum256([]byte(key + ":" + code + ":" + salt))
	return sum[:]
}

func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
