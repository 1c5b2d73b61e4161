package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/metrics"
	"github.com/SukhvirKooner/Louder/internal/repository"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
	"github.com/SukhvirKooner/Louder/shared/utils/id"
)

// SubscriptionService accepts email submissions from verified addresses only.
type SubscriptionService struct {
	verifications repository.VerificationRepository
	submissions   repository.SubmissionRepository
	events        repository.EventRepository
	now           func() time.Time
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

func NewSubscriptionService(
	verifications repository.VerificationRepository,
	submissions repository.SubmissionRepository,
	events repository.EventRepository,
	now func() time.Time,
	logger *zap.Logger,
	m *metrics.Metrics,
) *SubscriptionService {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionService{
		verifications: verifications,
		submissions:   submissions,
		events:        events,
		now:           now,
		logger:        logger,
		metrics:       m,
	}
}

// Submit records a subscription for email. eventID is optional; when it names
// a stored event the result carries that event's ticket link.
func (s *SubscriptionService) Submit(ctx context.Context, rawEmail, eventID string) (domain.SubmitResult, error) {
	email, err := cleanEmail(rawEmail)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	if _, err := s.verifications.Get(ctx, email); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			s.metrics.Subscription("not_verified")
			return domain.SubmitResult{}, xerrors.ErrEmailNotVerified
		}
		return domain.SubmitResult{}, fmt.Errorf("load verification: %w", err)
	}

	var result domain.SubmitResult
	eventID = strings.TrimSpace(eventID)
	if eventID != "" {
		ev, err := s.events.GetByID(ctx, eventID)
		switch {
		case err == nil:
			result.TicketURL = ev.TicketURL
		case errors.Is(err, xerrors.ErrNotFound):
			s.logger.Debug("submission names unknown event", zap.String("event_id", eventID))
			eventID = ""
		default:
			return domain.SubmitResult{}, fmt.Errorf("load event: %w", err)
		}
	}

	created, err := s.submissions.Create(ctx, &domain.EmailSubmission{
		ID:          id.GenerateUUID("sub"),
		Email:       email,
		EventID:     eventID,
		SubmittedAt: s.now(),
	})
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("store submission: %w", err)
	}

	if created {
		result.Status = domain.SubmitAccepted
	} else {
		result.Status = domain.SubmitAlreadySubscribed
	}
	s.metrics.Subscription(string(result.Status))
	s.logger.Info("subscription submitted", zap.String("email", email), zap.String("status", string(result.Status)))
	return result, nil
}
