package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/SukhvirKooner/Louder/internal/domain"
)

type fakeIngester struct {
	mu         sync.Mutex
	ingests    int
	purges     int
	inFlight   atomic.Int32
	overlapped atomic.Bool
	delay      time.Duration
	ingestErr  error
	purgeErr   error
	panicking  bool
}

func (f *fakeIngester) Ingest(context.Context) (domain.IngestReport, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	defer f.inFlight.Add(-1)
	if f.panicking {
		panic("scraper exploded")
	}
	time.Sleep(f.delay)
	f.mu.Lock()
	f.ingests++
	f.mu.Unlock()
	return domain.IngestReport{Events: 3, Upserted: 3}, f.ingestErr
}

func (f *fakeIngester) PurgePast(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	return 2, f.purgeErr
}

func (f *fakeIngester) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ingests, f.purges
}

type fakeSweeper struct{ calls atomic.Int32 }

func (s *fakeSweeper) SweepExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return 1, nil
}

func TestRunOnceFullCycle(t *testing.T) {
	ing := &fakeIngester{}
	sw := &fakeSweeper{}
	w := NewIngestWorker(ing, sw, Options{Interval: time.Hour, PurgePast: true}, zap.NewNop())

	report := w.RunOnce(context.Background())

	assert.Equal(t, 3, report.Upserted)
	assert.Equal(t, int64(2), report.Purged)
	ingests, purges := ing.counts()
	assert.Equal(t, 1, ingests)
	assert.Equal(t, 1, purges)
	assert.Equal(t, int32(1), sw.calls.Load())
}

func TestRunOnceSkipsPurgeWhenDisabled(t *testing.T) {
	ing := &fakeIngester{}
	w := NewIngestWorker(ing, nil, Options{PurgePast: false}, zap.NewNop())

	report := w.RunOnce(context.Background())

	_, purges := ing.counts()
	assert.Zero(t, purges)
	assert.Zero(t, report.Purged)
}

func TestRunOnceContinuesAfterErrors(t *testing.T) {
	ing := &fakeIngester{ingestErr: errors.New("store down"), purgeErr: errors.New("still down")}
	sw := &fakeSweeper{}
	core, logs := observer.New(zap.ErrorLevel)
	w := NewIngestWorker(ing, sw, Options{PurgePast: true}, zap.New(core))

	assert.NotPanics(t, func() { w.RunOnce(context.Background()) })
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, int32(1), sw.calls.Load())
}

func TestRunOnceRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := NewIngestWorker(&fakeIngester{panicking: true}, nil, Options{}, zap.New(core))

	assert.NotPanics(t, func() { w.RunOnce(context.Background()) })
	assert.Equal(t, 1, logs.FilterMessage("ingest cycle panicked").Len())
}

func TestStartRunsOnStartAndStops(t *testing.T) {
	ing := &fakeIngester{}
	w := NewIngestWorker(ing, nil, Options{Interval: time.Hour, RunOnStart: true}, zap.NewNop())

	go w.Start(context.Background())
	require.Eventually(t, func() bool {
		n, _ := ing.counts()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
	n, _ := ing.counts()
	assert.Equal(t, 1, n)
}

func TestStartCyclesNeverOverlap(t *testing.T) {
	ing := &fakeIngester{delay: 30 * time.Millisecond}
	w := NewIngestWorker(ing, nil, Options{Interval: time.Millisecond, RunOnStart: true}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)
	require.Eventually(t, func() bool {
		n, _ := ing.counts()
		return n >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-w.done

	assert.False(t, ing.overlapped.Load())
}
