package fields

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var crewNamePattern = regexp.MustCompile(`^[A-Za-z .\-]+$`)

// Three-letter airport codes that show up on roster screens next to names.
var airportFalsePositives = map[string]struct{}{
	"HKG": {}, "LHR": {}, "JFK": {}, "LAX": {}, "SFO": {}, "NRT": {}, "HND": {},
	"SIN": {}, "SYD": {}, "MEL": {}, "BKK": {}, "TPE": {}, "PEK": {}, "PVG": {},
	"ICN": {}, "DXB": {}, "FRA": {}, "CDG": {}, "AMS": {}, "ORD": {}, "YVR": {},
	"KIX": {}, "MNL": {}, "DEL": {}, "BOM": {}, "ZRH": {}, "MAN": {}, "BNE": {},
}

// Role abbreviations and roster headings that are never names.
var roleFalsePositives = map[string]struct{}{
	"PIC": {}, "SIC": {}, "FO": {}, "SO": {}, "CN": {}, "CPT": {}, "CAPT": {},
	"RELIEF": {}, "ISM": {}, "SP": {}, "FP": {}, "FA": {}, "CC": {}, "PF": {},
	"PM": {}, "CREW": {}, "COCKPIT": {}, "CABIN": {}, "BASE": {}, "RANK": {},
}

// CrewName is a cleaned crew-name candidate
type CrewName struct {
	Name     string
	Original string
	// Truncated is set when trailing dots were removed.
	Truncated bool
}

// CrewNameToken validates one roster part: letters, spaces, hyphens and dots
// only, longer than one character, and not a known airport or role code.
// Trailing dots are stripped and the result is title-cased.
func CrewNameToken(part string) (CrewName, bool) {
	original := strings.TrimSpace(part)
	if len(original) <= 1 || !crewNamePattern.MatchString(original) {
		return CrewName{}, false
	}

	upper := strings.ToUpper(strings.Trim(original, ". "))
	if _, ok := airportFalsePositives[upper]; ok {
		return CrewName{}, false
	}
	if _, ok := roleFalsePositives[upper]; ok {
		return CrewName{}, false
	}

	cleaned := strings.TrimSpace(strings.TrimRight(original, "."))
	if len(cleaned) <= 1 {
		return CrewName{}, false
	}

	return CrewName{
		Name:      titleCase(cleaned),
		Original:  original,
		Truncated: cleaned != strings.TrimRight(original, " "),
	}, true
}

func titleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Title(language.English).String(strings.ToLower(s))
}
