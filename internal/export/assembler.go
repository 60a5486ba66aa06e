/**
 * Export assembler
 *
 * Merges recognized values, manual overrides and crew lists into the single
 * entity payload handed to the logbook, together with its idempotent key.
 */

package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

const (
	DateFormat         = "02/01/2006"
	DateAndTimeFormat  = "02/01/2006 15:04"
	keyLength          = 16
	applicationName    = "FlightCapture"
	applicationVersion = "1.0"
	entityName         = "Flight"
)

// FallbackDate is used when no date could be inferred.
var FallbackDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Export payload field names.
const (
	KeyEntityName         = "entity_name"
	KeyFlightNumber       = "flight_flightNumber"
	KeyAircraftID         = "aircraft_aircraftID"
	KeyAircraftType       = "aircraftType_type"
	KeyFrom               = "flight_from"
	KeyTo                 = "flight_to"
	KeyFlightDate         = "flight_flightDate"
	KeyScheduledDeparture = "flight_scheduledDepartureTime"
	KeyScheduledArrival   = "flight_scheduledArrivalTime"
	KeyActualDeparture    = "flight_actualDepartureTime"
	KeyTakeoff            = "flight_takeoffTime"
	KeyLanding            = "flight_landingTime"
	KeyActualArrival      = "flight_actualArrivalTime"
	KeyRecordKey          = "flight_key"
	KeyRemarks            = "flight_remarks"
)

var crewFields = map[models.Role]string{
	models.RolePIC:     "flight_selectedCrewPIC",
	models.RoleRelief:  "flight_selectedCrewRelief",
	models.RoleSIC:     "flight_selectedCrewSIC",
	models.RoleRelief2: "flight_selectedCrewRelief2",
	models.RoleISM:     "flight_selectedCrewCustom1",
	models.RoleSP:      "flight_selectedCrewCustom2",
	models.RoleFP:      "flight_selectedCrewCustom3",
	models.RoleFA:      "flight_selectedCrewFlightAttendant",
	models.RoleFA2:     "flight_selectedCrewFlightAttendant2",
	models.RoleFA3:     "flight_selectedCrewFlightAttendant3",
	models.RoleFA4:     "flight_selectedCrewFlightAttendant4",
}

// CrewField returns the payload field for a role, empty for unknown roles.
func CrewField(role models.Role) string {
	return crewFields[role]
}

// Metadata describes the payload format.
type Metadata struct {
	Application       string `json:"application"`
	Version           string `json:"version"`
	DateFormat        string `json:"dateFormat"`
	DateAndTimeFormat string `json:"dateAndTimeFormat"`
	TimesAreZulu      bool   `json:"timesAreZulu"`
}

// Payload is the hand-off document: metadata plus exactly one entity.
type Payload struct {
	Metadata Metadata            `json:"metadata"`
	Entities []map[string]string `json:"entities"`
}

// JSON serializes the payload.
func (p *Payload) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// Entity returns the single entity map.
func (p *Payload) Entity() map[string]string {
	if len(p.Entities) == 0 {
		return nil
	}
	return p.Entities[0]
}

// Input is everything the assembler merges.
type Input struct {
	Record    *models.FlightRecord
	Overrides Overrides
	Cockpit   []models.CrewMember
	Cabin     []models.CrewMember
}

// Export is an assembled record ready to hand off and persist.
type Export struct {
	Key          string    `json:"key"`
	FlightNumber string    `json:"flight_number"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	Date         time.Time `json:"date"`
	DateInferred bool      `json:"date_inferred"`
	Payload      Payload   `json:"payload"`
}

// Assembler builds export payloads.
type Assembler struct {
	literals     Literals
	fallbackDate time.Time
}

// NewAssembler creates an assembler with the given last-resort literals.
func NewAssembler(literals Literals) *Assembler {
	if literals == nil {
		literals = Literals{}
	}
	return &Assembler{literals: literals, fallbackDate: FallbackDate}
}

// Assemble merges input into an export. Values resolve override first, then
// recognized text, then literals. Absent values are left out of the entity.
func (a *Assembler) Assemble(in Input) *Export {
	record := in.Record
	if record == nil {
		record = &models.FlightRecord{}
	}
	chain := Chain{in.Overrides, RecordSource{Record: record}, a.literals}

	entity := map[string]string{KeyEntityName: entityName}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			entity[key] = value
		}
	}

	flight, _ := chain.Resolve(models.FieldFlightNumber)
	origin, _ := chain.Resolve(models.FieldDeparture)
	destination, _ := chain.Resolve(models.FieldArrival)
	registration, _ := chain.Resolve(models.FieldRegistration)
	aircraftType, _ := chain.Resolve(models.FieldAircraftType)

	set(KeyFlightNumber, flight)
	set(KeyFrom, origin)
	set(KeyTo, destination)
	set(KeyAircraftID, registration)
	set(KeyAircraftType, aircraftType)

	date, inferred := record.Date, !record.Date.IsZero()
	if !inferred {
		date = a.fallbackDate
	}
	set(KeyFlightDate, date.Format(DateFormat))

	clock := func(kind models.FieldKind) (models.ZuluTime, bool) {
		v, _ := chain.ResolveValid(kind, func(s string) bool {
			_, ok := ParseClock(s)
			return ok
		})
		if v == "" {
			return models.ZuluTime{}, false
		}
		return ParseClock(v)
	}

	// Actual times take the date of the matching scheduled time and only
	// swap the clock. Without a scheduled time they roll from the flight
	// date using their own +1 flag.
	var departure, arrival *time.Time
	if z, ok := clock(models.FieldScheduledOut); ok {
		t := at(date, z)
		departure, arrival = &t, &t
		set(KeyScheduledDeparture, t.Format(DateAndTimeFormat))
	}
	if z, ok := clock(models.FieldScheduledIn); ok {
		t := at(date, z)
		arrival = &t
		set(KeyScheduledArrival, t.Format(DateAndTimeFormat))
	}

	actuals := []struct {
		kind models.FieldKind
		key  string
		base *time.Time
	}{
		{models.FieldActualOut, KeyActualDeparture, departure},
		{models.FieldActualOff, KeyTakeoff, departure},
		{models.FieldActualOn, KeyLanding, arrival},
		{models.FieldActualIn, KeyActualArrival, arrival},
	}
	for _, act := range actuals {
		z, ok := clock(act.kind)
		if !ok {
			continue
		}
		t := at(date, z)
		if act.base != nil {
			t = onDate(*act.base, z)
		}
		set(act.key, t.Format(DateAndTimeFormat))
	}

	for _, list := range [][]models.CrewMember{in.Cockpit, in.Cabin} {
		for _, m := range list {
			field := CrewField(m.Role)
			if field == "" {
				continue
			}
			if _, taken := entity[field]; taken {
				continue
			}
			set(field, m.Name)
		}
	}

	key := Key(date, flight, origin, destination)
	set(KeyRecordKey, key)
	set(KeyRemarks, Note(record, in.Overrides, flight, inferred))

	return &Export{
		Key:          key,
		FlightNumber: flight,
		Origin:       origin,
		Destination:  destination,
		Date:         date,
		DateInferred: inferred,
		Payload: Payload{
			Metadata: Metadata{
				Application:       applicationName,
				Version:           applicationVersion,
				DateFormat:        "dd/MM/yyyy",
				DateAndTimeFormat: "dd/MM/yyyy HH:mm",
				TimesAreZulu:      true,
			},
			Entities: []map[string]string{entity},
		},
	}
}

// at places a zulu clock on the calendar day of base, one day later when flagged.
func at(base time.Time, z models.ZuluTime) time.Time {
	t := onDate(base, z)
	if z.NextDay {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func onDate(day time.Time, z models.ZuluTime) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), z.Hour, z.Minute, 0, 0, time.UTC)
}

// Key derives the idempotent record key from date, flight number, origin
// and destination: the first 16 hex characters of their SHA-256 digest.
func Key(date time.Time, flight, origin, destination string) string {
	parts := []string{date.Format(DateFormat), flight, origin, destination}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:keyLength]
}

// Note summarizes what a reviewer should look at.
func Note(record *models.FlightRecord, overrides Overrides, flight string, dateInferred bool) string {
	var b strings.Builder
	if flight != "" {
		fmt.Fprintf(&b, "Captured %s.", flight)
	} else {
		b.WriteString("Captured flight.")
	}

	var low []string
	for _, res := range record.FieldResults() {
		if overrides.Has(res.Kind) {
			continue
		}
		if res.Confidence.Level != models.ConfidenceHigh && res.Confidence.Level != models.ConfidenceMedium {
			low = append(low, res.Field)
		}
	}
	if len(low) > 0 {
		fmt.Fprintf(&b, " Low confidence: %s.", strings.Join(low, ", "))
	}
	if !dateInferred {
		b.WriteString(" Date not inferred.")
	}
	return b.String()
}
