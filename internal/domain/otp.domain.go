package domain

import "time"

// OTPRecord is one issuance attempt. Records are never updated; the newest
// record for an email is the only one eligible for verification.
type OTPRecord struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Code     string    `json:"-"`
	IssuedAt time.Time `json:"issued_at"`
}

// Expired reports whether the record is older than ttl at the given instant.
func (o OTPRecord) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.IssuedAt) > ttl
}

// VerifiedEmail is a durable claim that an email passed OTP verification.
type VerifiedEmail struct {
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}
