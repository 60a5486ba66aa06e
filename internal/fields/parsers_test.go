package fields_test

import (
	"testing"

	"github.com/adverant/nexus/flightcapture-worker/internal/fields"
)

func TestFlightNumber(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Flight CPA648, Aircraft: BLRU", "CPA648", true},
		{"CX 888", "", false},
		{"KA1234 CPA648", "KA1234", true},
		{"Flight: CPA648.", "CPA648", true},
		{"cpa648", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := fields.FlightNumber(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Errorf("FlightNumber(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeRegistration(t *testing.T) {
	cases := map[string]string{
		"BLRU":   "B-LRU",
		"B-LRU":  "B-LRU",
		"N123AB": "N123AB",
		"BHNA1":  "BHNA1",
		"VHOQA":  "VHOQA",
	}
	for in, want := range cases {
		if got := fields.NormalizeRegistration(in); got != want {
			t.Errorf("NormalizeRegistration(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistration(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Flight CPA648, Aircraft: BLRU", "B-LRU", true},
		{"Reg: BLRU A333", "B-LRU", true},
		{"Registration b-hna, 1835Z", "B-HNA", true},
		{"A333 B-LRU", "B-LRU", true},
		{"BLRU BHNA", "B-HNA", true},
		{"1835 2135", "", false},
		{"Registration: ---, BLRU", "B-LRU", true},
		{"Reg: N/A", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := fields.Registration(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Registration(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAirportCode(t *testing.T) {
	text := "VHHH Hong Kong, RJAA Narita"

	if got, ok := fields.AirportCode(text, 0); !ok || got != "VHHH" {
		t.Errorf("Expected departure VHHH, got %q", got)
	}
	if got, ok := fields.AirportCode(text, 1); !ok || got != "RJAA" {
		t.Errorf("Expected arrival RJAA, got %q", got)
	}
	if got, ok := fields.AirportCode("To: RJAA", 1); !ok || got != "RJAA" {
		t.Errorf("Expected single code for arrival, got %q", got)
	}
	if got, ok := fields.AirportCode("VHHH RJAA", 1); !ok || got != "RJAA" {
		t.Errorf("Expected second code of a space-separated pair, got %q", got)
	}
	if got, ok := fields.AirportCode("HKG VHHH, NRT RJAA", 1); !ok || got != "RJAA" {
		t.Errorf("Expected arrival RJAA, got %q", got)
	}
	if _, ok := fields.AirportCode("HKG, NRT", 0); ok {
		t.Error("Expected no match for IATA codes")
	}
}

func TestZuluTime(t *testing.T) {
	z, ok := fields.ZuluTime("1835Z, 2135L")
	if !ok {
		t.Fatal("Expected a zulu time")
	}
	if z.Raw != "1835Z" || z.Hour != 18 || z.Minute != 35 || z.NextDay {
		t.Errorf("Unexpected zulu time %+v", z)
	}

	z, ok = fields.ZuluTime("2359Z+1")
	if !ok {
		t.Fatal("Expected a zulu time")
	}
	if z.Hour != 23 || z.Minute != 59 || !z.NextDay || z.Raw != "2359Z" {
		t.Errorf("Unexpected zulu time %+v", z)
	}

	z, ok = fields.ZuluTime("9999Z 0105z")
	if !ok || z.Raw != "0105Z" {
		t.Errorf("Expected invalid clock to be skipped, got %+v", z)
	}

	if _, ok := fields.ZuluTime("2135L"); ok {
		t.Error("Expected local time to be rejected")
	}

	for _, text := range []string{"12345Z", "A012345Z+1"} {
		if z, ok := fields.ZuluTime(text); ok {
			t.Errorf("ZuluTime(%q) should not match inside a longer digit run, got %+v", text, z)
		}
	}
}

func TestAircraftType(t *testing.T) {
	cases := map[string]string{
		"A333":           "A333",
		"Type: b77w":     "B77W",
		"A350-900 BLRU":  "A350-900",
		"CPA648 E190":    "E190",
		"no type here 1": "",
	}
	for in, want := range cases {
		got, _ := fields.AircraftType(in)
		if got != want {
			t.Errorf("AircraftType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWeekdayAndDay(t *testing.T) {
	if got, ok := fields.Weekday("MON"); !ok || got != "mon" {
		t.Errorf("Expected 'mon', got %q", got)
	}
	if _, ok := fields.Weekday("30"); ok {
		t.Error("Expected digits to be rejected as weekday")
	}
	if got, ok := fields.Weekday("W"); !ok || got != "w" {
		t.Errorf("Expected 'w', got %q", got)
	}
	if _, ok := fields.Weekday("T"); ok {
		t.Error("Expected ambiguous single letter to be rejected")
	}
	if got, ok := fields.DayOfMonth("30 SEP"); !ok || got != 30 {
		t.Errorf("Expected 30, got %d", got)
	}
	if got, ok := fields.DayOfMonth("45 7"); !ok || got != 7 {
		t.Errorf("Expected out-of-range day to be skipped, got %d", got)
	}
	if _, ok := fields.DayOfMonth("none"); ok {
		t.Error("Expected no day")
	}
}

func TestCrewNameToken(t *testing.T) {
	cases := []struct {
		part      string
		name      string
		ok        bool
		truncated bool
	}{
		{"CHAN TAI MAN", "Chan Tai Man", true, false},
		{"  wong  ka ming ", "Wong Ka Ming", true, false},
		{"LEE SIU L...", "Lee Siu L", true, true},
		{"HKG", "", false, false},
		{"PIC", "", false, false},
		{"Capt.", "", false, false},
		{"J", "", false, false},
		{"J.", "", false, false},
		{"CHAN 123", "", false, false},
		{"", "", false, false},
	}

	for _, tc := range cases {
		got, ok := fields.CrewNameToken(tc.part)
		if ok != tc.ok || got.Name != tc.name || got.Truncated != tc.truncated {
			t.Errorf("CrewNameToken(%q) = (%+v, %v), want name %q ok %v truncated %v",
				tc.part, got, ok, tc.name, tc.ok, tc.truncated)
		}
	}
}

func TestParsersArePure(t *testing.T) {
	text := "Flight CPA648, VHHH, RJAA, Reg BLRU, 1835Z"
	for i := 0; i < 3; i++ {
		a, _ := fields.FlightNumber(text)
		b, _ := fields.Registration(text)
		c, _ := fields.AirportCode(text, 1)
		if a != "CPA648" || b != "B-LRU" || c != "RJAA" {
			t.Fatalf("Run %d: unexpected results %q %q %q", i, a, b, c)
		}
	}
}
