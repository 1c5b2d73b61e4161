package scraper

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/datetime"
	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/metrics"
)

var ErrMalformedCard = errors.New("malformed listing card")

// PageResult is what one listing page produced.
type PageResult struct {
	Cards     int
	Events    []domain.Event
	Malformed int
	Unparsed  int
}

type Parser struct {
	normalizer *datetime.Normalizer
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewParser(normalizer *datetime.Normalizer, logger *zap.Logger, m *metrics.Metrics) *Parser {
	return &Parser{normalizer: normalizer, logger: logger, metrics: m}
}

// Parse extracts candidate events from one page. It only fails when the
// document itself cannot be read; card-level problems are counted and logged.
func (p *Parser) Parse(src config.SourceConfig, page int, r io.Reader) (PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PageResult{}, fmt.Errorf("read listing page: %w", err)
	}

	base, err := url.Parse(src.Origin)
	if err != nil {
		return PageResult{}, fmt.Errorf("parse origin: %w", err)
	}

	var res PageResult
	doc.Find(src.Selectors.Card).Each(func(i int, card *goquery.Selection) {
		res.Cards++
		ev, raw, err := p.extract(src, base, card)
		if err != nil {
			res.Malformed++
			p.metrics.CardParsed("malformed")
			p.logger.Warn("skipping listing card",
				zap.String("source", src.Name),
				zap.Int("page", page),
				zap.Int("card", i),
				zap.Error(err))
			return
		}

		start, err := p.normalizer.Normalize(raw)
		if err != nil {
			res.Unparsed++
			p.metrics.CardParsed("unparsed_date")
			p.logger.Debug("unparseable event date",
				zap.String("raw", raw),
				zap.String("source_id", ev.SourceID),
				zap.Error(err))
		} else {
			ev.StartTime = &start
			p.metrics.CardParsed("ok")
		}
		res.Events = append(res.Events, ev)
	})
	return res, nil
}

func (p *Parser) extract(src config.SourceConfig, base *url.URL, card *goquery.Selection) (ev domain.Event, rawDate string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedCard, r)
		}
	}()

	sel := src.Selectors
	ev.SourceOrigin = src.Origin

	link := card.Find(sel.Link).First()
	ev.SourceID = strings.TrimSpace(link.AttrOr(sel.IDAttr, ""))
	if href := strings.TrimSpace(link.AttrOr("href", "")); href != "" {
		ticket, err := resolve(base, href)
		if err != nil {
			return ev, "", fmt.Errorf("%w: ticket link: %v", ErrMalformedCard, err)
		}
		ev.TicketURL = ticket
	}

	ev.Title = text(card.Find(sel.Title).First())
	if sel.Description != "" {
		ev.Description = text(card.Find(sel.Description).First())
	}

	if info := card.Find(sel.Info); info.Length() >= 2 {
		rawDate = text(info.Eq(0))
		ev.Venue = text(info.Eq(1))
	}

	if raw, ok := card.Find(sel.Image).First().Attr("src"); ok && strings.TrimSpace(raw) != "" {
		if img, err := resolve(base, strings.TrimSpace(raw)); err == nil {
			ev.ImageURL = img
		}
	}
	return ev, rawDate, nil
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// text collapses the element's text into single-spaced words.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
