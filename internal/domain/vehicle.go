package domain

import "strings"

// Delivery vehicle with a depot, a capacity and an optional sector.
// A nil End means the crew does not come back to base at the end of the
// day (overnight stay near the last client).
type Vehicle struct {
	VehicleID string       `yaml:"id" json:"vehicle_id"`
	Capacity  int          `yaml:"capacity" json:"capacity"`
	Start     Coordinates  `yaml:"start" json:"start"`
	End       *Coordinates `yaml:"end" json:"end,omitempty"`
	Sector    string       `yaml:"sector" json:"sector,omitempty"`
}

func (v Vehicle) ReturnsToDepot() bool { return v.End != nil }

// Serves reports whether the vehicle may take orders from zone.
// Vehicles without a sector serve every zone.
func (v Vehicle) Serves(zone string) bool {
	if v.Sector == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(v.Sector), strings.TrimSpace(zone))
}
