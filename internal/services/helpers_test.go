package services

import (
	"testing"
	"time"
	_ "time/tzdata"

	"fleet-scheduling-service/internal/domain"
)

// Kilometres per degree of latitude for the haversine radius in geo.
const kmPerDegree = 6371 * 3.141592653589793 / 180

var paris = domain.Coordinates{Lon: 2.3522, Lat: 48.8566}

// north returns a point km kilometres due north of base.
func north(base domain.Coordinates, km float64) *domain.Coordinates {
	return &domain.Coordinates{Lon: base.Lon, Lat: base.Lat + km/kmPerDegree}
}

func order(id string, loc *domain.Coordinates, size int) domain.Order {
	return domain.Order{OrderID: id, Location: loc, Size: size, Status: domain.StatusPending}
}

func testPolicy() domain.Policy {
	p := domain.DefaultPolicy()
	p.AvgSpeedKmh = 60
	p.ServiceMinutes = 45
	p.StartHour = 8
	p.StartMinute = 0
	p.DeadlineHour = 20
	return p
}

func monday() time.Time {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func at(day time.Time, h, m int) time.Time {
	return domain.ClockOn(day, h, m)
}

// springForward is the 2026 daylight saving change in Europe/Paris.
func springForward(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return time.Date(2026, 3, 29, 0, 0, 0, 0, loc)
}
