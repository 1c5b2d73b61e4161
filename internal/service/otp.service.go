package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/mailer"
	"github.com/SukhvirKooner/Louder/internal/metrics"
	"github.com/SukhvirKooner/Louder/internal/repository"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
	"github.com/SukhvirKooner/Louder/shared/utils/id"
)

const otpPurpose = "louder_email_verification"

// RateLimiter is satisfied by *rate.Limiter. A nil RateLimiter disables limiting.
type RateLimiter interface {
	CanRequest(ctx context.Context, email string) error
}

type OTPService struct {
	otps          repository.OTPRepository
	verifications repository.VerificationRepository
	limiter       RateLimiter
	sender        mailer.Sender
	sf            *id.Snowflake
	ttl           time.Duration
	length        int
	now           func() time.Time
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

type OTPOptions struct {
	TTL    time.Duration
	Length int
	Now    func() time.Time
}

func NewOTPService(
	otps repository.OTPRepository,
	verifications repository.VerificationRepository,
	limiter RateLimiter,
	sender mailer.Sender,
	sf *id.Snowflake,
	opts OTPOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) *OTPService {
	if opts.TTL <= 0 {
		opts.TTL = 300 * time.Second
	}
	if opts.Length <= 0 {
		opts.Length = 6
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &OTPService{
		otps:          otps,
		verifications: verifications,
		limiter:       limiter,
		sender:        sender,
		sf:            sf,
		ttl:           opts.TTL,
		length:        opts.Length,
		now:           opts.Now,
		logger:        logger,
		metrics:       m,
	}
}

// Issue stores a fresh code for email and mails it. The stored record stands
// even when the mail cannot be sent; the caller may simply ask again.
func (s *OTPService) Issue(ctx context.Context, rawEmail string) (*domain.OTPRecord, error) {
	email, err := cleanEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.CanRequest(ctx, email); err != nil {
			if errors.Is(err, xerrors.ErrTooManyOTPRequests) {
				s.metrics.OTPIssued("rate_limited")
				return nil, err
			}
			// limiter backend unavailable; issuance is not blocked on it
			s.logger.Warn("otp rate limiter unavailable", zap.Error(err))
		}
	}

	code, err := randomCode(s.length)
	if err != nil {
		return nil, err
	}
	rec := &domain.OTPRecord{
		ID:       s.sf.Generate(),
		Email:    email,
		Code:     code,
		IssuedAt: s.now(),
	}
	if err := s.otps.Create(ctx, rec); err != nil {
		s.metrics.OTPIssued("store_failed")
		return nil, fmt.Errorf("store otp: %w", err)
	}

	subject := formatPurpose(otpPurpose)
	if err := s.sender.Send(ctx, email, subject, s.formatOTPMessage(code)); err != nil {
		s.metrics.OTPIssued("dispatch_failed")
		s.logger.Warn("otp dispatch failed", zap.String("email", email), zap.Error(err))
		return rec, nil
	}
	s.metrics.OTPIssued("sent")
	s.logger.Info("otp issued", zap.String("email", email), zap.String("otp_id", rec.ID))
	return rec, nil
}

// Verify checks code against the newest record for email and, on success,
// marks the email verified. A code stays usable until it expires.
func (s *OTPService) Verify(ctx context.Context, rawEmail, code string) error {
	email, err := cleanEmail(rawEmail)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return xerrors.ErrCodeRequired
	}

	rec, err := s.otps.Latest(ctx, email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return s.outcome(email, "not_found", xerrors.ErrOTPNotFound)
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}

	now := s.now()
	if rec.Expired(now, s.ttl) {
		return s.outcome(email, "expired", xerrors.ErrExpiredOTP)
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(rec.Code)) != 1 {
		return s.outcome(email, "mismatch", xerrors.ErrInvalidOTP)
	}

	if err := s.verifications.MarkVerified(ctx, email, now); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return s.outcome(email, "verified", nil)
}

// SweepExpired deletes records that can no longer verify.
func (s *OTPService) SweepExpired(ctx context.Context) (int64, error) {
	return s.otps.DeleteIssuedBefore(ctx, s.now().Add(-s.ttl))
}

func (s *OTPService) outcome(email, outcome string, err error) error {
	s.metrics.OTPVerified(outcome)
	s.logger.Info("otp verification", zap.String("email", email), zap.String("outcome", outcome))
	return err
}

func (s *OTPService) formatOTPMessage(code string) string {
	return fmt.Sprintf(
		"<p>Your Louder verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
		code, int(s.ttl.Minutes()),
	)
}
