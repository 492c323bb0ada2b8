package auth

import (
	"context"
	"sync"
	"time"

	"github.com/safecircle/server/internal/model"
)

// MemoryLedger keeps codes in process memory. Expired records are dropped
// when they are next read, and swept on every Issue.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]model.OtpRecord
	salt    string
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryLedger creates an in-process ledger
func NewMemoryLedger(salt string) *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]model.OtpRecord),
		salt:    salt,
		ttl:     OTPTTL,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (l *MemoryLedger) WithClock(now func() time.Time) *MemoryLedger {
	l.now = now
	return l
}

func (l *MemoryLedger) Issue(_ context.Context, key string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, rec := range l.records {
		if rec.Expired(now) {
			delete(l.records, k)
		}
	}

	l.records[key] = model.OtpRecord{
		Key:       key,
		CodeHash:  hashOTPBytes(key, code, l.salt),
		ExpiresAt: now.Add(l.ttl),
	}
	return code, nil
}

func (l *MemoryLedger) Validate(_ context.Context, key, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return model.ErrInvalidOrExpired
	}
	if rec.Expired(l.now()) {
		delete(l.records, key)
		return model.ErrInvalidOrExpired
	}
	if !constantTimeCompare(hashOTPBytes(key, code, l.salt), rec.CodeHash) {
		return model.ErrInvalidOrExpired
	}

	delete(l.records, key)
	return nil
}

// Len returns the number of stored records, including expired ones not yet read.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
