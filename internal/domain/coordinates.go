package domain

import "fmt"

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// CoordsFromList is the inverse of CoordsToList.
func CoordsFromList(v []float64) (Coordinates, error) {
	if len(v) != 2 {
		return Coordinates{}, fmt.Errorf("coordinates: expected [lon, lat], got %d values", len(v))
	}
	return Coordinates{Lon: v[0], Lat: v[1]}, nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}
