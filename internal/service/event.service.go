package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/metrics"
	"github.com/SukhvirKooner/Louder/internal/repository"
	"github.com/SukhvirKooner/Louder/internal/scraper"
)

// Scraper is satisfied by *scraper.Fetcher.
type Scraper interface {
	FetchAll(ctx context.Context, sources []config.SourceConfig) []scraper.SourceResult
}

type EventService struct {
	events  repository.EventRepository
	scraper Scraper
	sources []config.SourceConfig
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewEventService(
	events repository.EventRepository,
	sc Scraper,
	sources []config.SourceConfig,
	now func() time.Time,
	logger *zap.Logger,
	m *metrics.Metrics,
) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:  events,
		scraper: sc,
		sources: sources,
		now:     now,
		logger:  logger,
		metrics: m,
	}
}

// ListUpcoming returns events starting now or later, soonest first.
func (s *EventService) ListUpcoming(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.events.ListUpcoming(ctx, s.now(), limit)
}

func (s *EventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *EventService) Lookup(ctx context.Context, sourceOrigin, sourceID string) (*domain.Event, error) {
	return s.events.Lookup(ctx, sourceOrigin, sourceID)
}

// Ingest scrapes every configured source and upserts what it finds. Failures
// are counted per source and per event; only cancellation is returned.
func (s *EventService) Ingest(ctx context.Context) (domain.IngestReport, error) {
	started := time.Now()
	report := domain.IngestReport{Sources: len(s.sources)}

	for _, res := range s.scraper.FetchAll(ctx, s.sources) {
		if res.Failed() {
			report.FailedSources++
			s.logger.Error("source scrape failed",
				zap.String("source", res.Source),
				zap.String("stop", string(res.Stop)),
				zap.Error(res.Err))
		}
		report.Pages += res.Pages
		report.UnparsedDates += res.Unparsed

		for i := range res.Events {
			ev := &res.Events[i]
			report.Events++
			ev.UpdatedAt = s.now()
			if err := s.events.Upsert(ctx, ev); err != nil {
				report.FailedUpserts++
				s.metrics.EventUpserted("failed")
				s.logger.Warn("event upsert failed",
					zap.String("source", res.Source),
					zap.String("source_id", ev.SourceID),
					zap.Error(err))
				continue
			}
			report.Upserted++
			s.metrics.EventUpserted("ok")
		}
	}

	report.Duration = time.Since(started)
	s.metrics.IngestCompleted(report.Duration)
	s.logger.Info("ingest finished",
		zap.Int("sources", report.Sources),
		zap.Int("failed_sources", report.FailedSources),
		zap.Int("pages", report.Pages),
		zap.Int("events", report.Events),
		zap.Int("upserted", report.Upserted),
		zap.Int("failed_upserts", report.FailedUpserts),
		zap.Int("unparsed_dates", report.UnparsedDates),
		zap.Duration("duration", report.Duration))
	return report, ctx.Err()
}

// PurgePast deletes events whose start time has passed. Undated events stay.
func (s *EventService) PurgePast(ctx context.Context) (int64, error) {
	n, err := s.events.DeletePast(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.EventsPurged(n)
	s.logger.Info("past events purged", zap.Int64("deleted", n))
	return n, nil
}
