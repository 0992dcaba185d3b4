package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/geo"
)

type SimulateOptions struct {
	VehicleID string
	Depot     domain.Coordinates
	// Return leg target. Depot is used when nil.
	DepotEnd *domain.Coordinates
	// Keep the input order instead of building a nearest-neighbor sequence.
	PreserveOrder bool
	// Nil applies the sleep line policy.
	ReturnToDepot *bool
	// Zero disables the overload flag.
	Capacity int
}

// OptionsFor builds simulation options for a fleet vehicle. Vehicles
// without an end depot never return; others follow the sleep line.
func OptionsFor(v domain.Vehicle) SimulateOptions {
	opts := SimulateOptions{
		VehicleID: v.VehicleID,
		Depot:     v.Start,
		DepotEnd:  v.End,
		Capacity:  v.Capacity,
	}
	if !v.ReturnsToDepot() {
		opts.ReturnToDepot = boolPtr(false)
	}
	return opts
}

func boolPtr(b bool) *bool { return &b }

// SleepLineReturn applies the overnight policy: tours whose stops lie, on
// average, south of the sleep line end at the last client.
func SleepLineReturn(policy domain.Policy, orders []domain.Order) bool {
	points := make([]domain.Coordinates, 0, len(orders))
	for _, o := range orders {
		if o.Location != nil {
			points = append(points, *o.Location)
		}
	}
	c, ok := geo.Centroid(points)
	if !ok {
		return true
	}
	return c.Lat >= policy.SleepLineLat
}

// SimulateTour produces a timed tour for one vehicle on one day.
//
// Unless PreserveOrder is set, stops are sequenced with a greedy
// nearest-neighbor walk from the depot; ties keep the first order seen in
// the input, so identical input always yields the identical tour. Travel
// legs use great-circle distance at the policy average speed, rounded to
// whole minutes, and every stop consumes the policy service time.
func SimulateTour(
	policy domain.Policy,
	day time.Time,
	orders []domain.Order,
	startHour, startMinute, deadlineHour int,
	opts SimulateOptions,
) (*domain.Tour, error) {
	if policy.AvgSpeedKmh <= 0 {
		return nil, errors.New("simulate tour: average speed must be positive")
	}

	for _, o := range orders {
		if !o.Routable() {
			return nil, fmt.Errorf("simulate tour: order %s: %w", o.OrderID, domain.ErrUnroutable)
		}
	}

	dayStart := domain.Day(day)
	departAt := domain.ClockOn(dayStart, startHour, startMinute)
	deadline := domain.ClockOn(dayStart, deadlineHour, 0)

	returnToDepot := SleepLineReturn(policy, orders)
	if opts.ReturnToDepot != nil {
		returnToDepot = *opts.ReturnToDepot
	}

	sequence := orders
	if !opts.PreserveOrder {
		sequence = nearestNeighborOrder(opts.Depot, orders)
	}

	tour := &domain.Tour{
		VehicleID:      opts.VehicleID,
		Day:            dayStart,
		DepartAt:       departAt,
		Stops:          make([]domain.Stop, 0, len(sequence)),
		ReturnsToDepot: returnToDepot,
	}

	currentTime := departAt
	currentLocation := opts.Depot
	totalKm := 0.0

	for _, o := range sequence {
		legKm := geo.Distance(currentLocation, *o.Location)
		travel := geo.TravelMinutes(legKm, policy.AvgSpeedKmh)

		arrival := currentTime.Add(time.Duration(travel) * time.Minute)
		departure := arrival.Add(time.Duration(policy.ServiceMinutes) * time.Minute)
		totalKm += legKm

		tour.Stops = append(tour.Stops, domain.Stop{
			Order:          o,
			Location:       *o.Location,
			Arrival:        arrival,
			Departure:      departure,
			TravelMinutes:  travel,
			ServiceMinutes: policy.ServiceMinutes,
			LegKm:          legKm,
			CumulativeKm:   totalKm,
			IsLate:         arrival.After(deadline),
		})
		tour.Load += o.Size

		currentTime = departure
		currentLocation = *o.Location
	}

	// The return leg only exists when there is somewhere to come back from.
	if returnToDepot && len(sequence) > 0 {
		end := opts.Depot
		if opts.DepotEnd != nil {
			end = *opts.DepotEnd
		}
		backKm := geo.Distance(currentLocation, end)
		currentTime = currentTime.Add(time.Duration(geo.TravelMinutes(backKm, policy.AvgSpeedKmh)) * time.Minute)
		totalKm += backKm
	}

	tour.ReturnTime = currentTime
	tour.TotalDistanceKm = totalKm
	tour.TotalDurationMinutes = int(currentTime.Sub(departAt) / time.Minute)
	tour.Overloaded = opts.Capacity > 0 && tour.Load > opts.Capacity

	return tour, nil
}

// nearestNeighborOrder sequences orders by repeatedly visiting the closest
// unvisited one. Orders must be routable.
func nearestNeighborOrder(start domain.Coordinates, orders []domain.Order) []domain.Order {
	remaining := make([]domain.Order, len(orders))
	copy(remaining, orders)

	out := make([]domain.Order, 0, len(orders))
	current := start
	for len(remaining) > 0 {
		best := -1
		bestKm := math.MaxFloat64
		// Strict comparison: the first candidate in input order wins ties.
		for i, o := range remaining {
			d := geo.Distance(current, *o.Location)
			if d < bestKm {
				bestKm = d
				best = i
			}
		}

		next := remaining[best]
		out = append(out, next)
		current = *next.Location
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return out
}
