/**
 * Flight capture models
 *
 * Types shared by the extraction pipeline: field kinds, per-field results,
 * the aggregated flight record and crew entries.
 */

package models

import (
	"fmt"
	"time"
)

// FieldKind identifies one extractable field. The set is closed.
type FieldKind int

const (
	FieldFlightNumber FieldKind = iota
	FieldAircraftType
	FieldRegistration
	FieldDeparture
	FieldArrival
	FieldScheduledOut
	FieldScheduledIn
	FieldActualOut
	FieldActualOff
	FieldActualOn
	FieldActualIn
	FieldWeekday
	FieldDayOfMonth
	FieldCockpitCrew
	FieldCabinCrew

	// NumFieldKinds is the number of field kinds; keep it last.
	NumFieldKinds
)

var fieldKindNames = [NumFieldKinds]string{
	FieldFlightNumber: "flight_number",
	FieldAircraftType: "aircraft_type",
	FieldRegistration: "registration",
	FieldDeparture:    "departure",
	FieldArrival:      "arrival",
	FieldScheduledOut: "scheduled_out",
	FieldScheduledIn:  "scheduled_in",
	FieldActualOut:    "actual_out",
	FieldActualOff:    "actual_off",
	FieldActualOn:     "actual_on",
	FieldActualIn:     "actual_in",
	FieldWeekday:      "weekday",
	FieldDayOfMonth:   "day_of_month",
	FieldCockpitCrew:  "cockpit_crew",
	FieldCabinCrew:    "cabin_crew",
}

func (k FieldKind) String() string {
	if k < 0 || k >= NumFieldKinds {
		return fmt.Sprintf("field(%d)", int(k))
	}
	return fieldKindNames[k]
}

// ParseFieldKind maps a field name back to its kind.
func ParseFieldKind(name string) (FieldKind, error) {
	for i, n := range fieldKindNames {
		if n == name {
			return FieldKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", name)
}

// FlightFieldKinds returns the kinds read from the flight-data image, in catalog order.
func FlightFieldKinds() []FieldKind {
	return []FieldKind{
		FieldFlightNumber,
		FieldAircraftType,
		FieldRegistration,
		FieldDeparture,
		FieldArrival,
		FieldScheduledOut,
		FieldScheduledIn,
		FieldActualOut,
		FieldActualOff,
		FieldActualOn,
		FieldActualIn,
		FieldWeekday,
		FieldDayOfMonth,
	}
}

// IsTime reports whether the field carries a zulu clock value.
func (k FieldKind) IsTime() bool {
	switch k {
	case FieldScheduledOut, FieldScheduledIn, FieldActualOut, FieldActualOff, FieldActualOn, FieldActualIn:
		return true
	}
	return false
}

// ConfidenceLevel is the coarse quality bucket of a field result
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Confidence is the level/score/reason triple attached to every field result
type Confidence struct {
	Level  ConfidenceLevel `json:"level"`
	Score  float64         `json:"score"`
	Reason string          `json:"reason"`
}

// FieldResult is the recognized text of one ROI with its confidence.
type FieldResult struct {
	Kind       FieldKind  `json:"-"`
	Field      string     `json:"field"`
	RawText    string     `json:"raw_text"`
	Confidence Confidence `json:"confidence"`
}

// ZuluTime is a parsed HHMMZ clock value.
type ZuluTime struct {
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	NextDay bool   `json:"next_day"`
	Raw     string `json:"raw"`
}

// Clock returns the value as HH:MM.
func (z ZuluTime) Clock() string {
	return fmt.Sprintf("%02d:%02d", z.Hour, z.Minute)
}

// FlightRecord aggregates the parsed values of one capture session.
type FlightRecord struct {
	FlightNumber string `json:"flight_number,omitempty"`
	AircraftType string `json:"aircraft_type,omitempty"`
	Registration string `json:"registration,omitempty"`
	Departure    string `json:"departure,omitempty"`
	Arrival      string `json:"arrival,omitempty"`

	ScheduledOut *ZuluTime `json:"scheduled_out,omitempty"`
	ScheduledIn  *ZuluTime `json:"scheduled_in,omitempty"`
	ActualOut    *ZuluTime `json:"actual_out,omitempty"`
	ActualOff    *ZuluTime `json:"actual_off,omitempty"`
	ActualOn     *ZuluTime `json:"actual_on,omitempty"`
	ActualIn     *ZuluTime `json:"actual_in,omitempty"`

	Weekday    string `json:"weekday,omitempty"`
	DayOfMonth int    `json:"day_of_month,omitempty"`

	// Date is zero until inference succeeds.
	Date           time.Time  `json:"date,omitempty"`
	DateConfidence Confidence `json:"date_confidence"`

	Results [NumFieldKinds]FieldResult `json:"-"`
}

// Time returns the zulu value stored for a time field, or nil.
func (r *FlightRecord) Time(kind FieldKind) *ZuluTime {
	switch kind {
	case FieldScheduledOut:
		return r.ScheduledOut
	case FieldScheduledIn:
		return r.ScheduledIn
	case FieldActualOut:
		return r.ActualOut
	case FieldActualOff:
		return r.ActualOff
	case FieldActualOn:
		return r.ActualOn
	case FieldActualIn:
		return r.ActualIn
	}
	return nil
}

// SetTime stores a zulu value for a time field. Non-time kinds are ignored.
func (r *FlightRecord) SetTime(kind FieldKind, z *ZuluTime) {
	switch kind {
	case FieldScheduledOut:
		r.ScheduledOut = z
	case FieldScheduledIn:
		r.ScheduledIn = z
	case FieldActualOut:
		r.ActualOut = z
	case FieldActualOff:
		r.ActualOff = z
	case FieldActualOn:
		r.ActualOn = z
	case FieldActualIn:
		r.ActualIn = z
	}
}

// Value returns the normalized value of a field as text, empty when absent.
func (r *FlightRecord) Value(kind FieldKind) string {
	switch kind {
	case FieldFlightNumber:
		return r.FlightNumber
	case FieldAircraftType:
		return r.AircraftType
	case FieldRegistration:
		return r.Registration
	case FieldDeparture:
		return r.Departure
	case FieldArrival:
		return r.Arrival
	case FieldScheduledOut, FieldScheduledIn, FieldActualOut, FieldActualOff, FieldActualOn, FieldActualIn:
		if z := r.Time(kind); z != nil {
			return z.Raw
		}
		return ""
	case FieldWeekday:
		return r.Weekday
	case FieldDayOfMonth:
		if r.DayOfMonth > 0 {
			return fmt.Sprintf("%d", r.DayOfMonth)
		}
		return ""
	}
	return ""
}

// FieldResults returns the results of the flight fields in catalog order.
func (r *FlightRecord) FieldResults() []FieldResult {
	kinds := FlightFieldKinds()
	out := make([]FieldResult, 0, len(kinds))
	for _, k := range kinds {
		res := r.Results[k]
		res.Kind = k
		res.Field = k.String()
		out = append(out, res)
	}
	return out
}

// Role is a crew position. Known roles have a fixed seniority rank.
type Role string

const (
	RolePIC     Role = "PIC"
	RoleRelief  Role = "Relief"
	RoleSIC     Role = "SIC"
	RoleRelief2 Role = "Relief2"
	RoleISM     Role = "ISM"
	RoleSP      Role = "SP"
	RoleFP      Role = "FP"
	RoleFA      Role = "FA"
	RoleFA2     Role = "FA2"
	RoleFA3     Role = "FA3"
	RoleFA4     Role = "FA4"
)

// CrewMember is one named crew entry
type CrewMember struct {
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// CrewReviewItem records a crew name that was altered during cleanup
type CrewReviewItem struct {
	Role          Role   `json:"role"`
	OriginalText  string `json:"original_text"`
	CorrectedText string `json:"corrected_text"`
}
