package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors locate the pieces of one listing card. Info matches the two
// adjacent short lines read positionally as (date/time, venue).
type Selectors struct {
	Card        string `yaml:"card"`
	Link        string `yaml:"link"`
	IDAttr      string `yaml:"id_attr"`
	Title       string `yaml:"title"`
	Info        string `yaml:"info"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"` // optional; most listing pages carry none
}

type SourceConfig struct {
	Name      string    `yaml:"name"`
	Origin    string    `yaml:"origin"`
	PageParam string    `yaml:"page_param"` // default: page
	MaxPages  int       `yaml:"max_pages"`  // 0 = until an empty page
	Selectors Selectors `yaml:"selectors"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Card:   "div.event-card",
		Link:   "a.event-card-link",
		IDAttr: "data-event-id",
		Title:  "a.event-card-link h3",
		Info:   "p.event-card__clamp-line--one",
		Image:  "img",
	}
}

func LoadSources(path string) ([]SourceConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, errors.New("sources file lists no sources")
	}
	return f.Sources, nil
}

func applySourceDefaults(sources []SourceConfig, maxPages int) []SourceConfig {
	def := DefaultSelectors()
	for i := range sources {
		s := &sources[i]
		if s.PageParam == "" {
			s.PageParam = "page"
		}
		if s.MaxPages == 0 {
			s.MaxPages = maxPages
		}
		if s.Name == "" {
			if u, err := url.Parse(s.Origin); err == nil && u.Host != "" {
				s.Name = u.Host
			} else {
				s.Name = s.Origin
			}
		}
		sel := &s.Selectors
		if sel.Card == "" {
			sel.Card = def.Card
		}
		if sel.Link == "" {
			sel.Link = def.Link
		}
		if sel.IDAttr == "" {
			sel.IDAttr = def.IDAttr
		}
		if sel.Title == "" {
			sel.Title = def.Title
		}
		if sel.Info == "" {
			sel.Info = def.Info
		}
		if sel.Image == "" {
			sel.Image = def.Image
		}
	}
	return sources
}

func (s SourceConfig) validate() error {
	u, err := url.Parse(s.Origin)
	if err != nil {
		return fmt.Errorf("origin %q: %w", s.Origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin %q must be an http(s) url", s.Origin)
	}
	if s.MaxPages < 0 {
		return fmt.Errorf("origin %q: max_pages must not be negative", s.Origin)
	}
	return nil
}
