package confidence

import (
	"strings"
	"testing"

	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

func TestScoreEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		c := Score(models.FieldFlightNumber, text)
		if c.Score != 0 || c.Level != models.ConfidenceLow || c.Reason != ReasonEmpty {
			t.Errorf("Score(%q) = %+v, want zero/low/empty", text, c)
		}
	}
}

func TestScoreLevels(t *testing.T) {
	cases := []struct {
		kind   models.FieldKind
		text   string
		level  models.ConfidenceLevel
		reason string
	}{
		{models.FieldFlightNumber, "CPA648", models.ConfidenceHigh, ReasonExact},
		{models.FieldFlightNumber, "Flight CPA648", models.ConfidenceHigh, ReasonPartial},
		{models.FieldFlightNumber, "###", models.ConfidenceLow, ReasonNone},
		{models.FieldRegistration, "B-LRU", models.ConfidenceHigh, ReasonExact},
		{models.FieldDeparture, "VHHH", models.ConfidenceHigh, ReasonExact},
		{models.FieldDeparture, "hkg", models.ConfidenceMedium, ReasonStructural},
		{models.FieldScheduledOut, "2359Z+1", models.ConfidenceHigh, ReasonExact},
		{models.FieldWeekday, "Mon", models.ConfidenceHigh, ReasonExact},
		{models.FieldDayOfMonth, "30", models.ConfidenceHigh, ReasonExact},
		{models.FieldCockpitCrew, "CHAN TAI MAN, WONG KA MING", models.ConfidenceHigh, ReasonExact},
	}

	for _, tc := range cases {
		c := Score(tc.kind, tc.text)
		if c.Level != tc.level || c.Reason != tc.reason {
			t.Errorf("Score(%s, %q) = %+v, want level %s reason %q", tc.kind, tc.text, c, tc.level, tc.reason)
		}
		if c.Score < 0 || c.Score > 1 {
			t.Errorf("Score(%s, %q) = %v out of range", tc.kind, tc.text, c.Score)
		}
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := map[float64]models.ConfidenceLevel{
		1:      models.ConfidenceHigh,
		0.8:    models.ConfidenceHigh,
		0.7999: models.ConfidenceMedium,
		0.5:    models.ConfidenceMedium,
		0.4999: models.ConfidenceLow,
		0:      models.ConfidenceLow,
	}
	for score, want := range cases {
		if got := Level(score); got != want {
			t.Errorf("Level(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestScoreMonotonicUnderMatchingAppend(t *testing.T) {
	cases := []struct {
		kind models.FieldKind
		base string
		more []string
	}{
		{models.FieldFlightNumber, "CPA648", []string{"CPA649", "KA1234"}},
		{models.FieldDeparture, "VHHH", []string{"RJAA", "EGLL"}},
		{models.FieldRegistration, "B-LRU", []string{"B-HNA", "VHOQA"}},
		{models.FieldActualOff, "1835Z", []string{"2359Z+1", "0005Z"}},
		{models.FieldWeekday, "Mon", []string{"TUE", "wednesday"}},
		{models.FieldDayOfMonth, "30", []string{"1", "07"}},
	}

	for _, tc := range cases {
		base := Score(tc.kind, tc.base)
		if base.Level != models.ConfidenceHigh {
			t.Fatalf("%s: base %q not high: %+v", tc.kind, tc.base, base)
		}

		text := tc.base
		for i := 0; i < 4; i++ {
			for _, m := range tc.more {
				for _, sep := range []string{", ", " "} {
					extended := text + sep + m
					c := Score(tc.kind, extended)
					if c.Score < HighThreshold {
						t.Errorf("%s: %q dropped to %v (%s)", tc.kind, extended, c.Score, c.Level)
					}
				}
			}
			text = text + ", " + strings.Join(tc.more, " ")
		}
	}
}

func TestScoreUnknownKind(t *testing.T) {
	c := Score(models.FieldKind(99), "anything")
	if c.Reason != ReasonNone {
		t.Errorf("Expected no pattern match for unknown kind, got %+v", c)
	}
}

func TestResult(t *testing.T) {
	r := Result(models.FieldArrival, "RJAA")
	if r.Kind != models.FieldArrival || r.Field != "arrival" || r.RawText != "RJAA" {
		t.Errorf("Unexpected result %+v", r)
	}
	if r.Confidence != Score(models.FieldArrival, "RJAA") {
		t.Error("Expected result confidence to be deterministic")
	}
}
