// Package memstore keeps every repository in process memory. It backs
// STORAGE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/repository"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
	"github.com/SukhvirKooner/Louder/shared/utils/id"
)

func NewStore() *repository.Store {
	return repository.NewStore(NewEventRepo(), NewOTPRepo(), NewVerificationRepo(), NewSubmissionRepo(), nil, nil)
}

type identity struct {
	origin   string
	sourceID string
}

type EventRepo struct {
	mu         sync.RWMutex
	byID       map[string]*domain.Event
	byIdentity map[identity]string
}

func NewEventRepo() *EventRepo {
	return &EventRepo{
		byID:       make(map[string]*domain.Event),
		byIdentity: make(map[identity]string),
	}
}

func (r *EventRepo) Upsert(_ context.Context, ev *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = time.Now()
	}
	key := identity{ev.SourceOrigin, ev.SourceID}
	if ev.Deduplicable() {
		if existingID, ok := r.byIdentity[key]; ok {
			existing := r.byID[existingID]
			ev.ID = existing.ID
			ev.CreatedAt = existing.CreatedAt
			r.byID[existingID] = cloneEvent(ev)
			return nil
		}
	}

	ev.ID = id.GenerateUUID("evt")
	ev.CreatedAt = ev.UpdatedAt
	r.byID[ev.ID] = cloneEvent(ev)
	if ev.Deduplicable() {
		r.byIdentity[key] = ev.ID
	}
	return nil
}

func (r *EventRepo) ListUpcoming(_ context.Context, now time.Time, limit int) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Event
	for _, ev := range r.byID {
		if ev.StartTime != nil && !ev.StartTime.Before(now) {
			out = append(out, *cloneEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(*out[j].StartTime) {
			return out[i].StartTime.Before(*out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneEvent(ev), nil
}

func (r *EventRepo) Lookup(ctx context.Context, sourceOrigin, sourceID string) (*domain.Event, error) {
	if sourceID == "" {
		return nil, xerrors.ErrNotFound
	}
	r.mu.RLock()
	eventID, ok := r.byIdentity[identity{sourceOrigin, sourceID}]
	r.mu.RUnlock()
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return r.GetByID(ctx, eventID)
}

func (r *EventRepo) DeletePast(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for eventID, ev := range r.byID {
		if ev.StartTime == nil || !ev.StartTime.Before(now) {
			continue
		}
		delete(r.byID, eventID)
		if ev.Deduplicable() {
			delete(r.byIdentity, identity{ev.SourceOrigin, ev.SourceID})
		}
		n++
	}
	return n, nil
}

func cloneEvent(ev *domain.Event) *domain.Event {
	c := *ev
	if ev.StartTime != nil {
		t := *ev.StartTime
		c.StartTime = &t
	}
	return &c
}

type OTPRepo struct {
	mu      sync.Mutex
	records map[string][]domain.OTPRecord
}

func NewOTPRepo() *OTPRepo {
	return &OTPRepo{records: make(map[string][]domain.OTPRecord)}
}

func (r *OTPRepo) Create(_ context.Context, o *domain.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[o.Email] = append(r.records[o.Email], *o)
	return nil
}

func (r *OTPRepo) Latest(_ context.Context, email string) (*domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.OTPRecord
	for i := range r.records[email] {
		o := &r.records[email][i]
		if latest == nil || !o.IssuedAt.Before(latest.IssuedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, xerrors.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (r *OTPRepo) DeleteIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for email, recs := range r.records {
		kept := recs[:0]
		for _, o := range recs {
			if o.IssuedAt.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, o)
		}
		if len(kept) == 0 {
			delete(r.records, email)
		} else {
			r.records[email] = kept
		}
	}
	return n, nil
}

type VerificationRepo struct {
	mu       sync.RWMutex
	verified map[string]time.Time
}

func NewVerificationRepo() *VerificationRepo {
	return &VerificationRepo{verified: make(map[string]time.Time)}
}

func (r *VerificationRepo) MarkVerified(_ context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verified[email] = at
	return nil
}

func (r *VerificationRepo) Get(_ context.Context, email string) (*domain.VerifiedEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.verified[email]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &domain.VerifiedEmail{Email: email, VerifiedAt: at}, nil
}

type SubmissionRepo struct {
	mu      sync.Mutex
	byEmail map[string]domain.EmailSubmission
}

func NewSubmissionRepo() *SubmissionRepo {
	return &SubmissionRepo{byEmail: make(map[string]domain.EmailSubmission)}
}

func (r *SubmissionRepo) Create(_ context.Context, s *domain.EmailSubmission) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(s.Email)
	if _, ok := r.byEmail[key]; ok {
		return false, nil
	}
	r.byEmail[key] = *s
	return true, nil
}
