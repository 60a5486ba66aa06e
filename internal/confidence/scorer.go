// Package confidence grades recognized field text.
package confidence

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

const (
	lengthWeight  = 0.2
	alnumWeight   = 0.3
	patternWeight = 0.5

	// Length adequacy saturates at this many characters.
	saturationLength = 10

	HighThreshold   = 0.8
	MediumThreshold = 0.5
)

const (
	ReasonEmpty      = "empty text"
	ReasonExact      = "exact pattern match"
	ReasonPartial    = "partial pattern match"
	ReasonStructural = "structural match only"
	ReasonNone       = "no pattern match"
)

const (
	strengthExact      = 1.0
	strengthPartial    = 0.8
	strengthStructural = 0.6
	strengthNone       = 0.25
)

type rule struct {
	canonical  *regexp.Regexp
	structural *regexp.Regexp
	// crew text is split on commas and newlines only
	crew bool
}

var (
	timeRule = rule{
		canonical:  regexp.MustCompile(`^[0-9]{4}Z(\+1)?$`),
		structural: regexp.MustCompile(`[0-9]{3,4}`),
	}
	crewRule = rule{
		canonical:  regexp.MustCompile(`^[A-Za-z][A-Za-z .\-]*[A-Za-z.]$`),
		structural: regexp.MustCompile(`[A-Za-z]{2,}`),
		crew:       true,
	}
)

var rules = [models.NumFieldKinds]rule{
	models.FieldFlightNumber: {
		canonical:  regexp.MustCompile(`^[A-Z]{2,3}[0-9]{2,4}$`),
		structural: regexp.MustCompile(`[A-Za-z]{2}\s*[0-9]{2}`),
	},
	models.FieldAircraftType: {
		canonical:  regexp.MustCompile(`^[ABE][0-9]{2,3}[A-Z0-9]?(-[0-9]{3,4}[A-Z]{0,2})?$`),
		structural: regexp.MustCompile(`[ABEabe][0-9]{2}`),
	},
	models.FieldRegistration: {
		canonical:  regexp.MustCompile(`^(B-[A-Z0-9]{3}|[A-Z]{1,2}-[A-Z0-9]{3,5}|[A-Z0-9]{4,5})$`),
		structural: regexp.MustCompile(`[A-Za-z]-?[A-Za-z0-9]{2,}`),
	},
	models.FieldDeparture: {
		canonical:  regexp.MustCompile(`^[A-Z]{4}$`),
		structural: regexp.MustCompile(`[A-Za-z]{3,4}`),
	},
	models.FieldArrival: {
		canonical:  regexp.MustCompile(`^[A-Z]{4}$`),
		structural: regexp.MustCompile(`[A-Za-z]{3,4}`),
	},
	models.FieldScheduledOut: timeRule,
	models.FieldScheduledIn:  timeRule,
	models.FieldActualOut:    timeRule,
	models.FieldActualOff:    timeRule,
	models.FieldActualOn:     timeRule,
	models.FieldActualIn:     timeRule,
	models.FieldWeekday: {
		canonical:  regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*$`),
		structural: regexp.MustCompile(`[A-Za-z]{3}`),
	},
	models.FieldDayOfMonth: {
		canonical:  regexp.MustCompile(`^(0?[1-9]|[12][0-9]|3[01])$`),
		structural: regexp.MustCompile(`[0-9]`),
	},
	models.FieldCockpitCrew: crewRule,
	models.FieldCabinCrew:   crewRule,
}

// Score grades text recognized for a field. It never fails: unknown kinds
// and empty text grade low.
func Score(kind models.FieldKind, text string) models.Confidence {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Confidence{Level: models.ConfidenceLow, Score: 0, Reason: ReasonEmpty}
	}

	length := math.Min(float64(utf8.RuneCountInString(text))/saturationLength, 1)
	strength, reason := patternStrength(kind, text)

	score := lengthWeight*length + alnumWeight*alnumRatio(text) + patternWeight*strength
	score = math.Round(score*1e4) / 1e4

	return models.Confidence{Level: Level(score), Score: score, Reason: reason}
}

// Result builds a scored field result.
func Result(kind models.FieldKind, text string) models.FieldResult {
	return models.FieldResult{
		Kind:       kind,
		Field:      kind.String(),
		RawText:    text,
		Confidence: Score(kind, text),
	}
}

// Level maps a score onto its confidence bucket.
func Level(score float64) models.ConfidenceLevel {
	switch {
	case score >= HighThreshold:
		return models.ConfidenceHigh
	case score >= MediumThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// patternStrength is 1.0 when every token fits the canonical shape, 0.8 when
// some do, 0.6 when only a structural fragment is present.
func patternStrength(kind models.FieldKind, text string) (float64, string) {
	if kind < 0 || kind >= models.NumFieldKinds || rules[kind].canonical == nil {
		return strengthNone, ReasonNone
	}
	r := rules[kind]

	toks := tokens(text, r.crew)
	matched := 0
	for _, tok := range toks {
		if r.canonical.MatchString(tok) {
			matched++
		}
	}

	switch {
	case len(toks) > 0 && matched == len(toks):
		return strengthExact, ReasonExact
	case matched > 0:
		return strengthPartial, ReasonPartial
	case r.structural.MatchString(text):
		return strengthStructural, ReasonStructural
	default:
		return strengthNone, ReasonNone
	}
}

func tokens(text string, crew bool) []string {
	var parts []string
	if crew {
		parts = strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	} else {
		parts = strings.FieldsFunc(text, isSeparator)
	}

	out := parts[:0]
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), ":;")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// alnumRatio is the share of letters and digits among the non-separator runes.
func alnumRatio(text string) float64 {
	var total, alnum int
	for _, r := range text {
		if isSeparator(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}
