package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/domain"
)

type Ingester interface {
	Ingest(ctx context.Context) (domain.IngestReport, error)
	PurgePast(ctx context.Context) (int64, error)
}

type OTPSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type Options struct {
	Interval   time.Duration
	RunOnStart bool
	PurgePast  bool
}

// IngestWorker runs scrape, upsert, purge and OTP sweep in a loop. The next
// cycle is scheduled only after the previous one returns, so cycles never
// overlap.
type IngestWorker struct {
	ingester Ingester
	sweeper  OTPSweeper
	opts     Options
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewIngestWorker(ingester Ingester, sweeper OTPSweeper, opts Options, logger *zap.Logger) *IngestWorker {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &IngestWorker{
		ingester: ingester,
		sweeper:  sweeper,
		opts:     opts,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled.
func (w *IngestWorker) Start(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("starting ingest worker", zap.Duration("interval", w.opts.Interval))

	wait := w.opts.Interval
	if w.opts.RunOnStart {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			w.RunOnce(ctx)
			timer.Reset(w.opts.Interval)

		case <-w.stopChan:
			w.logger.Info("stopping ingest worker")
			return

		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping ingest worker")
			return
		}
	}
}

// Stop signals Start to return and waits for an in-flight cycle to finish.
// It must only be called once Start is running.
func (w *IngestWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.done
}

// RunOnce performs one full cycle. It never panics and never returns an
// error; every failure is logged.
func (w *IngestWorker) RunOnce(ctx context.Context) (report domain.IngestReport) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("ingest cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	w.logger.Info("ingest cycle started")
	report, err := w.ingester.Ingest(ctx)
	if err != nil {
		w.logger.Error("ingest failed", zap.Error(err))
	}

	if w.opts.PurgePast && ctx.Err() == nil {
		n, err := w.ingester.PurgePast(ctx)
		if err != nil {
			w.logger.Error("purge past events failed", zap.Error(err))
		}
		report.Purged = n
	}

	if w.sweeper != nil && ctx.Err() == nil {
		n, err := w.sweeper.SweepExpired(ctx)
		if err != nil {
			w.logger.Error("otp sweep failed", zap.Error(err))
		} else if n > 0 {
			w.logger.Info("expired otps swept", zap.Int64("deleted", n))
		}
	}

	w.logger.Info("ingest cycle finished",
		zap.Int("events", report.Events),
		zap.Int("upserted", report.Upserted),
		zap.Int64("purged", report.Purged),
		zap.Duration("duration", report.Duration))
	return report
}
