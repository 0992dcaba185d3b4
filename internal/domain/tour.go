package domain

import "time"

// Represents a single stop in a tour.
// Arrival and Departure are wall-clock times on the tour day; the travel
// leg is measured from the previous stop (or the depot for the first one).
type Stop struct {
	Order          Order
	Location       Coordinates
	Arrival        time.Time
	Departure      time.Time
	TravelMinutes  int
	ServiceMinutes int
	LegKm          float64
	CumulativeKm   float64
	IsLate         bool
}

// Represents one vehicle's planned stop sequence for one day.
// A Tour is immutable planning data and contains no side effects.
type Tour struct {
	VehicleID            string
	Day                  time.Time
	DepartAt             time.Time
	Stops                []Stop
	TotalDistanceKm      float64
	TotalDurationMinutes int
	ReturnTime           time.Time
	ReturnsToDepot       bool
	Load                 int
	Overloaded           bool
}

func (t Tour) OrderIDs() []string {
	ids := make([]string, 0, len(t.Stops))
	for _, s := range t.Stops {
		ids = append(ids, s.Order.OrderID)
	}
	return ids
}

func (t Tour) Orders() []Order {
	out := make([]Order, 0, len(t.Stops))
	for _, s := range t.Stops {
		out = append(out, s.Order)
	}
	return out
}

func (t Tour) Empty() bool { return len(t.Stops) == 0 }

// Assignments converts the tour into the records persisted for each stop.
func (t Tour) Assignments() []Assignment {
	out := make([]Assignment, 0, len(t.Stops))
	for _, s := range t.Stops {
		out = append(out, Assignment{
			OrderID:       s.Order.OrderID,
			VehicleID:     t.VehicleID,
			ScheduledDate: Day(t.Day),
			ArrivalAt:     s.Arrival,
		})
	}
	return out
}
