// Package datetime turns the free-text date/time strings found on listing
// cards ("Tomorrow at 12:00 PM", "Fri, May 28, 8:30 AM") into timestamps.
package datetime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// ErrUnparseable is returned (wrapped) for every input the normalizer rejects.
var ErrUnparseable = errors.New("unparseable date/time")

var (
	connectiveRe = regexp.MustCompile(`(?i)\s+at\s+`)
	commaRunRe   = regexp.MustCompile(`,(\s*,)+`)
	timeTokenRe  = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*([ap]m)\b`)
	yearRe       = regexp.MustCompile(`\b\d{4}\b`)

	separators = strings.NewReplacer("•", ",", "·", ",", "|", ",")

	// Full-name layouts are tried first; "May" is valid for both.
	monthDayLayouts = []string{"January 2 2006", "Jan 2 2006"}
)

var months = func() map[string]time.Month {
	m := make(map[string]time.Month, 25)
	for mo := time.January; mo <= time.December; mo++ {
		full := strings.ToLower(mo.String())
		m[full] = mo
		m[full[:3]] = mo
	}
	m["sept"] = time.September
	return m
}()

var weekdays = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 14)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		m[full] = wd
		m[full[:3]] = wd
	}
	return m
}()

// Normalizer resolves relative inputs ("today", weekday names, missing year)
// against the clock it was built with.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

func (n *Normalizer) Normalize(raw string) (time.Time, error) {
	return Parse(raw, n.now())
}

// Parse converts raw into a wall-clock timestamp in ref's location.
//
// A fragment naming a month always wins over weekday or "today"/"tomorrow"
// inference, so "Fri, May 28, 8:30 AM" is May 28 whatever weekday that is.
// Weekday names resolve to the next such day strictly after ref.
func Parse(raw string, ref time.Time) (time.Time, error) {
	parts := fragments(raw)
	if len(parts) == 0 {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrUnparseable)
	}

	hour, minute, err := findTime(parts)
	if err != nil {
		return time.Time{}, err
	}

	if md, ok := findMonthDay(parts); ok {
		d, err := parseMonthDay(md, ref.Year())
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, ref.Location()), nil
	}

	day, err := relativeDay(parts[0], ref)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, ref.Location()), nil
}

// fragments normalises separators to commas and splits into trimmed, non-empty parts.
func fragments(raw string) []string {
	s := connectiveRe.ReplaceAllString(raw, ", ")
	s = separators.Replace(s)
	s = commaRunRe.ReplaceAllString(s, ",")

	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findTime(parts []string) (hour, minute int, err error) {
	for _, p := range parts {
		m := timeTokenRe.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 || mi > 59 {
			return 0, 0, fmt.Errorf("%w: bad time %q", ErrUnparseable, m[0])
		}
		h %= 12
		if strings.EqualFold(m[3], "pm") {
			h += 12
		}
		return h, mi, nil
	}
	return 0, 0, fmt.Errorf("%w: no time fragment", ErrUnparseable)
}

func findMonthDay(parts []string) (string, bool) {
	for _, p := range parts {
		for _, w := range words(p) {
			if _, ok := months[w]; ok {
				return p, true
			}
		}
	}
	return "", false
}

func parseMonthDay(fragment string, year int) (time.Time, error) {
	tokens := strings.Fields(strings.ReplaceAll(fragment, ".", ""))
	for i, tok := range tokens {
		if fold(tok) == "sept" {
			tokens[i] = "Sep"
		}
	}
	md := strings.Join(tokens, " ")
	if !yearRe.MatchString(md) {
		md += " " + strconv.Itoa(year)
	}
	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, md); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad month/day %q", ErrUnparseable, fragment)
}

func relativeDay(first string, ref time.Time) (time.Time, error) {
	f := fold(first)
	y, m, d := ref.Date()
	switch {
	case strings.Contains(f, "today"):
		return time.Date(y, m, d, 0, 0, 0, 0, ref.Location()), nil
	case strings.Contains(f, "tomorrow"):
		return time.Date(y, m, d+1, 0, 0, 0, 0, ref.Location()), nil
	}
	if wd, ok := weekdays[f]; ok {
		ahead := (int(wd) - int(ref.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return time.Date(y, m, d+ahead, 0, 0, 0, 0, ref.Location()), nil
	}
	return time.Time{}, fmt.Errorf("%w: no date in %q", ErrUnparseable, first)
}

// words splits a fragment into case-folded alphabetic words.
func words(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool { return !unicode.IsLetter(r) })
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
