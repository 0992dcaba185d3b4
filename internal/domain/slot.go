package domain

import (
	"fmt"
	"time"
)

// SlotClass ranks a candidate delivery day by how much of the operating
// window the resulting tour would use.
type SlotClass int

const (
	SlotGood SlotClass = iota
	SlotAcceptable
	SlotCostly
)

func (c SlotClass) String() string {
	switch c {
	case SlotGood:
		return "GOOD"
	case SlotAcceptable:
		return "ACCEPTABLE"
	case SlotCostly:
		return "COSTLY"
	}
	return fmt.Sprintf("SlotClass(%d)", int(c))
}

func (c SlotClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

type SlotMode string

const (
	SlotInsert SlotMode = "insert"
	SlotSolo   SlotMode = "solo"
)

// SlotSuggestion describes one candidate day for one order.
// DistanceKm and DurationMinutes are incremental for inserts; for solo
// round trips they are the whole trip.
type SlotSuggestion struct {
	Date            time.Time `json:"date"`
	DistanceKm      float64   `json:"distance_km"`
	DurationMinutes int       `json:"duration_minutes"`
	TourMinutes     int       `json:"tour_minutes"`
	Class           SlotClass `json:"class"`
	Mode            SlotMode  `json:"mode"`
	Overloaded      bool      `json:"overloaded"`
}
