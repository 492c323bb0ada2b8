package model

import (
	"time"
)

// Account represents a registered user, keyed by email
type Account struct {
	ID        int64
	Email     string
	Name      string
	Phone     string
	Verified  bool
	CreatedAt time.Time
}

// DisplayName returns the name shown to nominees in alerts
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// Nominee represents an emergency contact owned by an account
type Nominee struct {
	ID        int64
	AccountID int64
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Coordinates is a validated latitude/longitude pair
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// EmergencyEvent represents a recorded emergency report
type EmergencyEvent struct {
	ID        int64
	AccountID int64
	Category  string
	Details   string
	Location  *Coordinates
	CreatedAt time.Time
}

// OtpRecord is an outstanding one-time code for an account key
type OtpRecord struct {
	Key       string
	CodeHash  []byte
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at now
func (r OtpRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// FanoutResult is the outcome of sending an alert to one nominee
type FanoutResult struct {
	Nominee   string `json:"nominee"`
	Success   bool   `json:"success"`
	MessageID string `json:"sid,omitempty"`
	Error     string `json:"error,omitempty"`
}
