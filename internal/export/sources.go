package export

import (
	"fmt"
	"strings"

	"github.com/adverant/nexus/flightcapture-worker/internal/fields"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

// Source supplies a candidate value for a field. An empty string means the
// source has nothing for that field.
type Source interface {
	Name() string
	Value(kind models.FieldKind) string
}

// Chain evaluates sources in order; the first non-empty value wins.
type Chain []Source

// Resolve returns the first non-empty value and the name of its source.
func (c Chain) Resolve(kind models.FieldKind) (string, string) {
	return c.ResolveValid(kind, nil)
}

// ResolveValid is Resolve restricted to values accepted by valid.
// A nil valid accepts everything.
func (c Chain) ResolveValid(kind models.FieldKind, valid func(string) bool) (string, string) {
	for _, src := range c {
		if src == nil {
			continue
		}
		v := strings.TrimSpace(src.Value(kind))
		if v == "" {
			continue
		}
		if valid != nil && !valid(v) {
			continue
		}
		return v, src.Name()
	}
	return "", ""
}

// Overrides are manual corrections keyed by field. Blank values do not count.
type Overrides map[models.FieldKind]string

func (Overrides) Name() string { return "override" }

func (o Overrides) Value(kind models.FieldKind) string {
	return strings.TrimSpace(o[kind])
}

// Has reports whether a non-blank override exists for kind.
func (o Overrides) Has(kind models.FieldKind) bool {
	return o.Value(kind) != ""
}

// ParseOverrides converts field-name keys (flight_number, actual_in, ...) into Overrides.
func ParseOverrides(raw map[string]string) (Overrides, error) {
	out := make(Overrides, len(raw))
	for name, value := range raw {
		kind, err := models.ParseFieldKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid override: %w", err)
		}
		out[kind] = value
	}
	return out, nil
}

// RecordSource exposes the recognized values of a flight record.
type RecordSource struct {
	Record *models.FlightRecord
}

func (RecordSource) Name() string { return "ocr" }

func (s RecordSource) Value(kind models.FieldKind) string {
	if s.Record == nil {
		return ""
	}
	if kind.IsTime() {
		z := s.Record.Time(kind)
		if z == nil {
			return ""
		}
		if z.NextDay {
			return z.Raw + "+1"
		}
		return z.Raw
	}
	return s.Record.Value(kind)
}

// Literals are fixed last-resort values.
type Literals map[models.FieldKind]string

func (Literals) Name() string { return "fallback" }

func (l Literals) Value(kind models.FieldKind) string { return l[kind] }

// ParseClock reads a clock value as written by the recognizer or typed by a
// reviewer: 1835Z, 1835, 18:35 and a trailing +1 are accepted.
func ParseClock(value string) (models.ZuluTime, bool) {
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), ":", ""))
	if z, ok := fields.ZuluTime(v); ok {
		return z, true
	}

	suffix := ""
	if strings.HasSuffix(v, "+1") {
		suffix = "+1"
		v = strings.TrimSuffix(v, "+1")
	}
	if len(v) != 4 {
		return models.ZuluTime{}, false
	}
	return fields.ZuluTime(v + "Z" + suffix)
}
