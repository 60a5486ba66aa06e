package dateinfer

import (
	stderrors "errors"
	"testing"
	"time"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

func fixed(year int, month time.Month, day int) Option {
	return WithNow(func() time.Time {
		return time.Date(year, month, day, 14, 30, 0, 0, time.UTC)
	})
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestInferMostRecentMatch(t *testing.T) {
	cases := []struct {
		name    string
		now     Option
		weekday string
		day     int
		want    time.Time
	}{
		{"previous month", fixed(2024, time.October, 15), "Mon", 30, date(2024, time.September, 30)},
		{"leap day", fixed(2024, time.March, 10), "THU", 29, date(2024, time.February, 29)},
		{"across new year", fixed(2025, time.January, 5), "tue", 31, date(2024, time.December, 31)},
		{"today counts", fixed(2024, time.September, 30), "mon", 30, date(2024, time.September, 30)},
		{"day before match is in the future", fixed(2024, time.September, 29), "Mon", 30, date(2023, time.October, 30)},
		{"long weekday name", fixed(2024, time.October, 15), "Monday", 30, date(2024, time.September, 30)},
		{"single letter monday", fixed(2024, time.October, 15), "M", 30, date(2024, time.September, 30)},
		{"single letter friday", fixed(2024, time.October, 15), "f", 11, date(2024, time.October, 11)},
		{"two letter prefix", fixed(2024, time.October, 15), "Tu", 15, date(2024, time.October, 15)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, conf, err := NewEngine(tc.now).Infer(tc.weekday, tc.day)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("Expected %s, got %s", tc.want.Format("2006-01-02"), got.Format("2006-01-02"))
			}
			if conf.Level != models.ConfidenceHigh {
				t.Errorf("Expected high confidence, got %s", conf.Level)
			}
		})
	}
}

func TestInferNeverReturnsFutureDate(t *testing.T) {
	labels := []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
	start := date(2023, time.December, 25)

	for offset := 0; offset < 70; offset++ {
		today := start.AddDate(0, 0, offset)
		engine := NewEngine(WithNow(func() time.Time { return today.Add(23 * time.Hour) }))

		for _, label := range labels {
			for day := 28; day <= 31; day++ {
				got, _, err := engine.Infer(label, day)
				if err != nil {
					continue
				}
				if got.After(today) {
					t.Fatalf("today %s: %s %d inferred future date %s", today.Format("2006-01-02"), label, day, got.Format("2006-01-02"))
				}
				if got.Day() != day || shortWeekdays[got.Weekday()] != label {
					t.Fatalf("today %s: %s %d inferred mismatching date %s", today.Format("2006-01-02"), label, day, got.Format("2006-01-02"))
				}
			}
		}
	}
}

func TestInferFailure(t *testing.T) {
	cases := []struct {
		name    string
		weekday string
		day     int
		opts    []Option
	}{
		{"unknown weekday", "xyz", 30, nil},
		{"ambiguous single letter", "t", 12, nil},
		{"ambiguous single letter s", "S", 12, nil},
		{"day out of range", "mon", 32, nil},
		{"zero day", "mon", 0, nil},
		{"window too small", "mon", 30, []Option{WithLookbackYears(0)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := append([]Option{fixed(2024, time.September, 29)}, tc.opts...)
			got, conf, err := NewEngine(opts...).Infer(tc.weekday, tc.day)
			if !stderrors.Is(err, apperrors.ErrDateInferenceFailed) {
				t.Fatalf("Expected DateInferenceFailed, got %v", err)
			}
			if !got.IsZero() {
				t.Errorf("Expected zero date, got %s", got)
			}
			if conf.Level != models.ConfidenceLow {
				t.Errorf("Expected low confidence, got %s", conf.Level)
			}
		})
	}
}
