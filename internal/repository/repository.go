package repository

import (
	"context"
	"time"

	"github.com/SukhvirKooner/Louder/internal/domain"
)

// EventRepository persists events keyed by (source origin, source id). Upsert
// overwrites every scalar field of an existing row; events without a source
// id are always inserted as new rows.
type EventRepository interface {
	Upsert(ctx context.Context, ev *domain.Event) error
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	Lookup(ctx context.Context, sourceOrigin, sourceID string) (*domain.Event, error)
	DeletePast(ctx context.Context, now time.Time) (int64, error)
}

type OTPRepository interface {
	Create(ctx context.Context, o *domain.OTPRecord) error
	// Latest returns the most recently issued record for email.
	Latest(ctx context.Context, email string) (*domain.OTPRecord, error)
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type VerificationRepository interface {
	MarkVerified(ctx context.Context, email string, at time.Time) error
	Get(ctx context.Context, email string) (*domain.VerifiedEmail, error)
}

type SubmissionRepository interface {
	// Create reports false without error when email already has a submission.
	Create(ctx context.Context, s *domain.EmailSubmission) (bool, error)
}

// Store bundles one storage backend's repositories.
type Store struct {
	Events        EventRepository
	OTPs          OTPRepository
	Verifications VerificationRepository
	Submissions   SubmissionRepository

	ping  func(ctx context.Context) error
	close func()
}

func NewStore(events EventRepository, otps OTPRepository, verifications VerificationRepository, submissions SubmissionRepository, ping func(context.Context) error, closeFn func()) *Store {
	return &Store{
		Events:        events,
		OTPs:          otps,
		Verifications: verifications,
		Submissions:   submissions,
		ping:          ping,
		close:         closeFn,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
