// Package dateinfer recovers a calendar date from a weekday label and a
// day-of-month, preferring the most recent date that is not in the future.
package dateinfer

import (
	"strings"
	"time"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

// DefaultLookbackYears is how many years before the current one are searched.
const DefaultLookbackYears = 2

var shortWeekdays = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// Engine searches backwards from today for a matching date.
type Engine struct {
	now           func() time.Time
	lookbackYears int
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow fixes the clock used as "today".
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLookbackYears overrides the search window.
func WithLookbackYears(years int) Option {
	return func(e *Engine) {
		if years >= 0 {
			e.lookbackYears = years
		}
	}
}

// NewEngine creates an engine using the wall clock unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, lookbackYears: DefaultLookbackYears}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer returns the most recent UTC date on or before today whose weekday
// matches the label and whose day of month is day. Years are scanned from
// the current one backwards, months from December to January, so the first
// hit is the latest match. Days that do not exist in a month are skipped.
func (e *Engine) Infer(weekday string, day int) (time.Time, models.Confidence, error) {
	token := normalizeWeekday(weekday)
	if token == "" || day < 1 || day > 31 {
		return time.Time{}, failed(), apperrors.NewDateInferenceError(weekday, day)
	}

	now := e.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for year := today.Year(); year >= today.Year()-e.lookbackYears; year-- {
		for month := time.December; month >= time.January; month-- {
			candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if candidate.Month() != month || candidate.After(today) {
				continue
			}
			if strings.HasPrefix(shortWeekdays[candidate.Weekday()], token) {
				return candidate, models.Confidence{
					Level:  models.ConfidenceHigh,
					Score:  1,
					Reason: "weekday and day of month matched",
				}, nil
			}
		}
	}

	return time.Time{}, failed(), apperrors.NewDateInferenceError(weekday, day)
}

// normalizeWeekday lowercases the label and keeps at most three letters.
// A single letter is accepted only when it names one weekday (M, W, F).
func normalizeWeekday(label string) string {
	token := strings.ToLower(strings.TrimSpace(label))
	if len(token) > 3 {
		token = token[:3]
	}
	switch {
	case token == "":
		return ""
	case len(token) == 1 && !strings.Contains("mwf", token):
		return ""
	}
	for _, r := range token {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return token
}

func failed() models.Confidence {
	return models.Confidence{Level: models.ConfidenceLow, Score: 0, Reason: "no matching date in search window"}
}
