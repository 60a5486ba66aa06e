package processor

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adverant/nexus/flightcapture-worker/internal/confidence"
	"github.com/adverant/nexus/flightcapture-worker/internal/crew"
	"github.com/adverant/nexus/flightcapture-worker/internal/dateinfer"
	"github.com/adverant/nexus/flightcapture-worker/internal/export"
	"github.com/adverant/nexus/flightcapture-worker/internal/fields"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

// Session owns the state of one capture: the flight record, both crew lists,
// the review queue and manual overrides. Every mutation goes through its lock.
type Session struct {
	mu        sync.Mutex
	id        string
	startedAt time.Time

	record      models.FlightRecord
	cockpit     []models.CrewMember
	cabin       []models.CrewMember
	review      crew.ReviewQueue
	overrides   export.Overrides
	crewDropped int
}

// Snapshot is a copy of session state safe to hand out.
type Snapshot struct {
	ID          string                  `json:"id"`
	StartedAt   time.Time               `json:"started_at"`
	Record      models.FlightRecord     `json:"record"`
	Fields      []models.FieldResult    `json:"fields"`
	Cockpit     []models.CrewMember     `json:"cockpit"`
	Cabin       []models.CrewMember     `json:"cabin"`
	Review      []models.CrewReviewItem `json:"review"`
	CrewDropped int                     `json:"crew_dropped,omitempty"`
}

// NewSession creates an empty session
func NewSession(id string) *Session {
	s := &Session{id: id}
	s.Reset()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Reset clears every piece of session state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startedAt = time.Now()
	s.record = models.FlightRecord{}
	s.cockpit = nil
	s.cabin = nil
	s.review.Reset()
	s.overrides = export.Overrides{}
	s.crewDropped = 0
}

// SetOverride records a manual correction. A blank value removes it.
func (s *Session) SetOverride(kind models.FieldKind, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(value) == "" {
		delete(s.overrides, kind)
		return
	}
	s.overrides[kind] = value
}

// SetOverrides records several corrections at once.
func (s *Session) SetOverrides(o export.Overrides) {
	for kind, value := range o {
		s.SetOverride(kind, value)
	}
}

// ApplyFlightResult parses and scores one flight-data region. Crew kinds are ignored.
func (s *Session) ApplyFlightResult(res ROIResult) {
	if res.Kind == models.FieldCockpitCrew || res.Kind == models.FieldCabinCrew {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.Results[res.Kind] = confidence.Result(res.Kind, res.Text)
	applyField(&s.record, res.Kind, res.Text)
}

func applyField(rec *models.FlightRecord, kind models.FieldKind, text string) {
	switch kind {
	case models.FieldFlightNumber:
		rec.FlightNumber, _ = fields.FlightNumber(text)
	case models.FieldAircraftType:
		rec.AircraftType, _ = fields.AircraftType(text)
	case models.FieldRegistration:
		rec.Registration, _ = fields.Registration(text)
	case models.FieldDeparture:
		rec.Departure, _ = fields.AirportCode(text, 0)
	case models.FieldArrival:
		rec.Arrival, _ = fields.AirportCode(text, 1)
	case models.FieldWeekday:
		rec.Weekday, _ = fields.Weekday(text)
	case models.FieldDayOfMonth:
		rec.DayOfMonth, _ = fields.DayOfMonth(text)
	default:
		if kind.IsTime() {
			if z, ok := fields.ZuluTime(text); ok {
				rec.SetTime(kind, &z)
			} else {
				rec.SetTime(kind, nil)
			}
		}
	}
}

// InferDate combines weekday and day of month into the record date.
// Overrides for either input take precedence over recognized values.
func (s *Session) InferDate(engine *dateinfer.Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekday := s.record.Weekday
	if v := s.overrides.Value(models.FieldWeekday); v != "" {
		weekday, _ = fields.Weekday(v)
	}
	day := s.record.DayOfMonth
	if v := s.overrides.Value(models.FieldDayOfMonth); v != "" {
		day, _ = strconv.Atoi(v)
	}

	date, conf, err := engine.Infer(weekday, day)
	s.record.Date = date
	s.record.DateConfidence = conf
	return err
}

// ApplyCrewResults parses a finished crew batch. Cockpit and cabin regions
// are read in ROI order and each list is assigned roles positionally.
func (s *Session) ApplyCrewResults(results []ROIResult) {
	var cockpitBlocks, cabinBlocks []string
	for _, res := range results {
		switch res.Kind {
		case models.FieldCockpitCrew:
			cockpitBlocks = append(cockpitBlocks, res.Text)
		case models.FieldCabinCrew:
			cabinBlocks = append(cabinBlocks, res.Text)
		}
	}

	cockpit := crew.Parse(cockpitBlocks, crew.CockpitRoles)
	cabin := crew.Parse(cabinBlocks, crew.CabinRoles)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cockpit = cockpit.Members
	s.cabin = cabin.Members
	s.crewDropped = cockpit.Dropped + cabin.Dropped
	for _, item := range append(cockpit.Review, cabin.Review...) {
		s.review.Add(item)
	}

	s.record.Results[models.FieldCockpitCrew] = confidence.Result(models.FieldCockpitCrew, strings.Join(cockpitBlocks, "\n"))
	s.record.Results[models.FieldCabinCrew] = confidence.Result(models.FieldCabinCrew, strings.Join(cabinBlocks, "\n"))
}

// ReassignRole moves a crew member to another role and re-sorts their list.
func (s *Session) ReassignRole(name string, role models.Role) error {
	if !crew.KnownRole(role) {
		return fmt.Errorf("unknown crew role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := crew.Reassign(s.cockpit, name, role); err == nil {
		return nil
	}
	return crew.Reassign(s.cabin, name, role)
}

// Snapshot copies the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:          s.id,
		StartedAt:   s.startedAt,
		Record:      s.record,
		Fields:      s.record.FieldResults(),
		Cockpit:     append([]models.CrewMember(nil), s.cockpit...),
		Cabin:       append([]models.CrewMember(nil), s.cabin...),
		Review:      s.review.Items(),
		CrewDropped: s.crewDropped,
	}
}

// Export assembles the payload from the current state.
func (s *Session) Export(assembler *export.Assembler) *export.Export {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.record
	overrides := make(export.Overrides, len(s.overrides))
	for k, v := range s.overrides {
		overrides[k] = v
	}

	return assembler.Assemble(export.Input{
		Record:    &record,
		Overrides: overrides,
		Cockpit:   append([]models.CrewMember(nil), s.cockpit...),
		Cabin:     append([]models.CrewMember(nil), s.cabin...),
	})
}
