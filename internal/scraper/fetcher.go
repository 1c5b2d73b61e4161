package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/metrics"
)

var ErrTransientFetch = errors.New("listing page not retrievable")

// StopReason records why pagination of one source ended.
type StopReason string

const (
	StopEndOfResults StopReason = "end_of_results"
	StopFetchFailed  StopReason = "fetch_failed"
	StopMaxPages     StopReason = "max_pages"
	StopCancelled    StopReason = "cancelled"
	StopSourceError  StopReason = "source_error"
)

type SourceResult struct {
	Source    string
	Events    []domain.Event
	Pages     int
	Unparsed  int
	Malformed int
	Stop      StopReason
	Err       error
}

// Failed reports whether the source stopped for a reason an operator should see.
func (r SourceResult) Failed() bool {
	return r.Stop == StopFetchFailed || r.Stop == StopSourceError
}

type Fetcher struct {
	pages       PageFetcher
	parser      *Parser
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewFetcher(pages PageFetcher, parser *Parser, concurrency int, logger *zap.Logger, m *metrics.Metrics) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{pages: pages, parser: parser, concurrency: concurrency, logger: logger, metrics: m}
}

// FetchAll scrapes every source, at most f.concurrency at a time. A failing
// source never stops the others. Results keep the order of sources.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.SourceConfig) []SourceResult {
	results := make([]SourceResult, len(sources))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = f.safeFetch(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Fetcher) safeFetch(ctx context.Context, src config.SourceConfig) (res SourceResult) {
	defer func() {
		if r := recover(); r != nil {
			res.Source = src.Name
			res.Stop = StopSourceError
			res.Err = fmt.Errorf("panic: %v", r)
			f.logger.Error("source scrape panicked", zap.String("source", src.Name), zap.Any("panic", r))
		}
	}()
	return f.FetchSource(ctx, src)
}

// FetchSource walks pages 1, 2, ... of one source sequentially until a page
// cannot be retrieved, a page yields no events, or the page cap is reached.
func (f *Fetcher) FetchSource(ctx context.Context, src config.SourceConfig) SourceResult {
	res := SourceResult{Source: src.Name}
	log := f.logger.With(zap.String("source", src.Name))

	for page := 1; ; page++ {
		if src.MaxPages > 0 && page > src.MaxPages {
			res.Stop = StopMaxPages
			log.Info("page cap reached", zap.Int("max_pages", src.MaxPages))
			return res
		}
		if err := ctx.Err(); err != nil {
			res.Stop = StopCancelled
			res.Err = err
			return res
		}

		pageURL, err := PageURL(src.Origin, src.PageParam, page)
		if err != nil {
			res.Stop = StopSourceError
			res.Err = err
			log.Error("cannot build page url", zap.Error(err))
			return res
		}

		status, body, err := f.pages.Get(ctx, pageURL)
		if err != nil || status != 200 {
			if ctx.Err() != nil {
				res.Stop = StopCancelled
				res.Err = ctx.Err()
				return res
			}
			res.Stop = StopFetchFailed
			res.Err = fmt.Errorf("%w: %s status=%d: %v", ErrTransientFetch, pageURL, status, err)
			f.metrics.PageFetched(src.Name, "failed")
			log.Warn("listing page not retrievable",
				zap.Int("page", page),
				zap.Int("status", status),
				zap.Error(err))
			return res
		}

		pr, err := f.parser.Parse(src, page, bytes.NewReader(body))
		if err != nil {
			res.Stop = StopSourceError
			res.Err = err
			f.metrics.PageFetched(src.Name, "unreadable")
			log.Error("listing page unreadable", zap.Int("page", page), zap.Error(err))
			return res
		}
		res.Pages++
		res.Unparsed += pr.Unparsed
		res.Malformed += pr.Malformed

		if len(pr.Events) == 0 {
			res.Stop = StopEndOfResults
			f.metrics.PageFetched(src.Name, "empty")
			log.Info("end of results", zap.Int("page", page), zap.Int("cards", pr.Cards))
			return res
		}
		f.metrics.PageFetched(src.Name, "ok")
		res.Events = append(res.Events, pr.Events...)
		log.Debug("page scraped", zap.Int("page", page), zap.Int("events", len(pr.Events)))
	}
}

// PageURL returns origin with the page query parameter set to page.
func PageURL(origin, param string, page int) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin %q: %w", origin, err)
	}
	if param == "" {
		param = "page"
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
