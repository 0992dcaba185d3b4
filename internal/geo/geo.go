// Package geo holds the pure distance and travel time math used by the
// routing engine. Nothing here touches the network.
package geo

import (
	"math"

	"fleet-scheduling-service/internal/domain"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b domain.Coordinates) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TravelTime estimates driving minutes for distanceKm at a constant
// average speed. A non-positive speed yields +Inf.
func TravelTime(distanceKm, avgSpeedKmh float64) float64 {
	if avgSpeedKmh <= 0 {
		return math.Inf(1)
	}
	return distanceKm / avgSpeedKmh * 60
}

// TravelMinutes is TravelTime rounded to whole minutes, the unit tours
// are scheduled in.
func TravelMinutes(distanceKm, avgSpeedKmh float64) int {
	return int(math.Round(TravelTime(distanceKm, avgSpeedKmh)))
}

// Centroid averages a set of points. It returns false for an empty set.
func Centroid(points []domain.Coordinates) (domain.Coordinates, bool) {
	if len(points) == 0 {
		return domain.Coordinates{}, false
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return domain.Coordinates{Lat: lat / n, Lon: lon / n}, true
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
