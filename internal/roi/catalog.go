package roi

import "github.com/adverant/nexus/flightcapture-worker/internal/models"

// ReferenceSize is the screenshot resolution the catalog was authored against.
var ReferenceSize = Size{Width: 2732, Height: 2048}

// FlightCatalog returns the regions of the flight-data screen, one per flight field.
func FlightCatalog() []Definition {
	return []Definition{
		define("flight_number", models.FieldFlightNumber, 120, 180, 620, 260),
		define("aircraft_type", models.FieldAircraftType, 640, 180, 1000, 260),
		define("registration", models.FieldRegistration, 1020, 180, 1400, 260),
		define("weekday", models.FieldWeekday, 2100, 180, 2300, 260),
		define("day_of_month", models.FieldDayOfMonth, 2320, 180, 2480, 260),
		define("departure", models.FieldDeparture, 120, 300, 700, 380),
		define("arrival", models.FieldArrival, 1420, 300, 2000, 380),
		define("scheduled_out", models.FieldScheduledOut, 120, 420, 600, 500),
		define("scheduled_in", models.FieldScheduledIn, 1420, 420, 1900, 500),
		define("actual_out", models.FieldActualOut, 120, 560, 600, 640),
		define("actual_off", models.FieldActualOff, 620, 560, 1100, 640),
		define("actual_on", models.FieldActualOn, 1420, 560, 1900, 640),
		define("actual_in", models.FieldActualIn, 1920, 560, 2400, 640),
	}
}

// CrewCatalog returns the regions of the crew-roster screen in left-to-right,
// top-to-bottom reading order.
func CrewCatalog() []Definition {
	return []Definition{
		define("cockpit_crew", models.FieldCockpitCrew, 100, 200, 1300, 1000),
		define("cabin_crew_left", models.FieldCabinCrew, 100, 1050, 1300, 1950),
		define("cabin_crew_right", models.FieldCabinCrew, 1400, 1050, 2600, 1950),
	}
}

// CompactCrewCatalog returns the crew regions of the single-image layout,
// where the roster sits below the flight data on the same screen.
func CompactCrewCatalog() []Definition {
	return []Definition{
		define("compact_cockpit_crew", models.FieldCockpitCrew, 120, 700, 1300, 1950),
		define("compact_cabin_crew", models.FieldCabinCrew, 1420, 700, 2600, 1950),
	}
}

func define(name string, kind models.FieldKind, x1, y1, x2, y2 float64) Definition {
	rect, err := FromReference(Point{X: x1, Y: y1}, Point{X: x2, Y: y2}, ReferenceSize)
	if err != nil {
		panic(err)
	}
	return Definition{Name: name, Kind: kind, Rect: rect}
}
