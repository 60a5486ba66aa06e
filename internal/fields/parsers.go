// Package fields turns raw recognized text into typed field values.
// Every parser is a pure function of its input.
package fields

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

var (
	flightNumberPattern = regexp.MustCompile(`^[A-Z]{2,3}[0-9]{2,4}$`)
	registrationPattern = regexp.MustCompile(`^[A-Z0-9]{4,5}$`)
	hasLetterPattern    = regexp.MustCompile(`[A-Z]`)
	icaoPattern         = regexp.MustCompile(`^[A-Z]{4}$`)
	zuluPattern         = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4})Z(\+1)?`)
	aircraftTypePattern = regexp.MustCompile(`^[ABE][0-9]{2,3}[A-Z0-9]?(-[0-9]{3,4}[A-Z]{0,2})?$`)
	dayOfMonthPattern   = regexp.MustCompile(`\b([0-9]{1,2})\b`)
	weekdayPattern      = regexp.MustCompile(`^(?:[A-Za-z]{2,}|[MWFmwf])$`)
)

// Tokens splits text on commas and whitespace, dropping empties.
func Tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// FlightNumber returns the first token made of 2-3 uppercase letters and 2-4 digits.
func FlightNumber(text string) (string, bool) {
	for _, tok := range Tokens(text) {
		tok = strings.Trim(tok, ":;.")
		if flightNumberPattern.MatchString(tok) {
			return tok, true
		}
	}
	return "", false
}

// Registration prefers the token after a Reg/Registration label, else the
// last 4-5 character uppercase alphanumeric token. Either must contain a
// letter. The result is normalized.
func Registration(text string) (string, bool) {
	toks := Tokens(text)

	for i, tok := range toks {
		label := strings.ToLower(strings.TrimRight(tok, ":."))
		if (label == "reg" || label == "registration") && i+1 < len(toks) {
			next := strings.ToUpper(strings.Trim(toks[i+1], ":;."))
			if looksLikeRegistration(next) {
				return NormalizeRegistration(next), true
			}
		}
	}

	for i := len(toks) - 1; i >= 0; i-- {
		tok := strings.Trim(toks[i], ":;.")
		if looksLikeRegistration(tok) {
			return NormalizeRegistration(tok), true
		}
	}
	return "", false
}

func looksLikeRegistration(tok string) bool {
	compact := strings.Replace(tok, "-", "", 1)
	return registrationPattern.MatchString(compact) && hasLetterPattern.MatchString(compact)
}

// NormalizeRegistration inserts the hyphen after a leading B when the result
// is exactly five characters long (BLRU -> B-LRU).
func NormalizeRegistration(reg string) string {
	if strings.HasPrefix(reg, "B") && !strings.HasPrefix(reg, "B-") && len(reg)+1 == 5 {
		return "B-" + reg[1:]
	}
	return reg
}

// AirportCode collects the 4-letter ICAO codes of text in reading order.
// occurrence 0 selects the departure, 1 the arrival; when fewer codes exist
// the last one found is used.
func AirportCode(text string, occurrence int) (string, bool) {
	var codes []string
	for _, part := range strings.Split(text, ",") {
		for _, tok := range strings.Fields(part) {
			tok = strings.Trim(tok, ":;.()")
			if icaoPattern.MatchString(tok) {
				codes = append(codes, tok)
			}
		}
	}
	if len(codes) == 0 {
		return "", false
	}
	if occurrence < 0 {
		occurrence = 0
	}
	if occurrence >= len(codes) {
		occurrence = len(codes) - 1
	}
	return codes[occurrence], true
}

// ZuluTime finds the first HHMMZ value. A trailing +1 is reported as NextDay
// and is not part of Raw.
func ZuluTime(text string) (models.ZuluTime, bool) {
	for _, m := range zuluPattern.FindAllStringSubmatch(strings.ToUpper(text), -1) {
		hour, _ := strconv.Atoi(m[1][:2])
		minute, _ := strconv.Atoi(m[1][2:])
		if hour > 23 || minute > 59 {
			continue
		}
		return models.ZuluTime{
			Hour:    hour,
			Minute:  minute,
			NextDay: m[2] != "",
			Raw:     m[1] + "Z",
		}, true
	}
	return models.ZuluTime{}, false
}

// AircraftType returns the first token that looks like an Airbus, Boeing or
// Embraer type designator (A333, B77W, A350-900).
func AircraftType(text string) (string, bool) {
	for _, tok := range Tokens(strings.ToUpper(text)) {
		tok = strings.Trim(tok, ":;.()")
		if aircraftTypePattern.MatchString(tok) {
			return tok, true
		}
	}
	return "", false
}

// Weekday returns the first alphabetic token, lowercased, for prefix matching
// against weekday names. Of the single letters only M, W and F qualify.
func Weekday(text string) (string, bool) {
	for _, tok := range Tokens(text) {
		tok = strings.Trim(tok, ":;.")
		if weekdayPattern.MatchString(tok) {
			return strings.ToLower(tok), true
		}
	}
	return "", false
}

// DayOfMonth returns the first 1-2 digit number between 1 and 31.
func DayOfMonth(text string) (int, bool) {
	for _, m := range dayOfMonthPattern.FindAllStringSubmatch(text, -1) {
		day, err := strconv.Atoi(m[1])
		if err == nil && day >= 1 && day <= 31 {
			return day, true
		}
	}
	return 0, false
}
