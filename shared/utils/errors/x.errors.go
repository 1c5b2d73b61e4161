package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories care about.
const (
	PGUniqueViolation = "23505"
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

// IsUniqueViolation reports a store-level uniqueness conflict.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == PGUniqueViolation
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrDuplicateKey   = errors.New("duplicate key")
)

// Input validation
var (
	ErrEmailRequired      = errors.New("email required")
	ErrCodeRequired       = errors.New("otp code required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// Verification / OTP
var (
	ErrOTPNotFound        = errors.New("otp not found")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrExpiredOTP         = errors.New("expired otp")
	ErrTooManyOTPRequests = errors.New("too many otp requests")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// RateLimitError carries how long the caller should wait before retrying.
type RateLimitError struct {
	Reason     string
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return e.Reason
}

func (e *RateLimitError) Unwrap() error {
	return ErrTooManyOTPRequests
}
