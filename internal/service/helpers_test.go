package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/scraper"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	to, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{to, subject, body})
	return nil
}

func (r *recordingSender) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

type stubScraper struct {
	results []scraper.SourceResult
}

func (s stubScraper) FetchAll(context.Context, []config.SourceConfig) []scraper.SourceResult {
	return s.results
}

var errBoom = errors.New("boom")
