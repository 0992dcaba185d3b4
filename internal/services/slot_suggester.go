package services

import (
	"fmt"
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/geo"
)

// SuggestSlots proposes delivery days for one order over a rolling
// horizon starting at from, skipping weekends.
//
// For each day the order is either inserted into the vehicle's existing
// tour, when that tour has a stop within the cluster radius, or priced as
// a solo round trip from the depot. Every eligible day yields exactly one
// suggestion, classified against the operating window; costly days are
// still listed. Results are sorted by date.
func SuggestSlots(
	policy domain.Policy,
	order domain.Order,
	existing []domain.Order,
	vehicle domain.Vehicle,
	from time.Time,
	horizonDays int,
) ([]domain.SlotSuggestion, error) {
	if !order.Routable() {
		return nil, fmt.Errorf("suggest slots: order %s: %w", order.OrderID, domain.ErrUnroutable)
	}
	if horizonDays <= 0 {
		horizonDays = policy.HorizonDays
	}

	window := policy.WindowMinutes()
	goodBelow := window - policy.GoodMarginMinutes
	first := domain.Day(from)

	out := make([]domain.SlotSuggestion, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		day := first.AddDate(0, 0, i)
		if domain.IsWeekend(day) {
			continue
		}
		if order.PinnedDate != nil && !order.PinnedTo(day) {
			continue
		}

		s, err := suggestDay(policy, order, dayTour(existing, order, vehicle, day), vehicle, day)
		if err != nil {
			return nil, fmt.Errorf("suggest slots: %s: %w", day.Format(time.DateOnly), err)
		}

		switch {
		case s.TourMinutes < goodBelow:
			s.Class = domain.SlotGood
		case s.TourMinutes <= window:
			s.Class = domain.SlotAcceptable
		default:
			s.Class = domain.SlotCostly
		}
		out = append(out, s)
	}

	return out, nil
}

// dayTour collects the routable orders the vehicle already serves on day.
func dayTour(existing []domain.Order, order domain.Order, vehicle domain.Vehicle, day time.Time) []domain.Order {
	var out []domain.Order
	for _, o := range existing {
		if o.OrderID == order.OrderID || !o.Routable() || !o.ScheduledOn(day) {
			continue
		}
		if o.VehicleID != "" && o.VehicleID != vehicle.VehicleID {
			continue
		}
		out = append(out, o)
	}
	return out
}

func suggestDay(
	policy domain.Policy,
	order domain.Order,
	current []domain.Order,
	vehicle domain.Vehicle,
	day time.Time,
) (domain.SlotSuggestion, error) {
	opts := OptionsFor(vehicle)
	s := domain.SlotSuggestion{Date: day}

	if nearCluster(policy, order, current) {
		withOrders := append(append([]domain.Order{}, current...), order)
		// Both tours share one return decision, taken on the tour as it
		// would run, so the difference only prices the added stop.
		if opts.ReturnToDepot == nil {
			opts.ReturnToDepot = boolPtr(SleepLineReturn(policy, withOrders))
		}
		base, err := SimulateTour(policy, day, current, policy.StartHour, policy.StartMinute, policy.DeadlineHour, opts)
		if err != nil {
			return s, err
		}
		with, err := SimulateTour(policy, day, withOrders, policy.StartHour, policy.StartMinute, policy.DeadlineHour, opts)
		if err != nil {
			return s, err
		}
		s.Mode = domain.SlotInsert
		s.DistanceKm = with.TotalDistanceKm - base.TotalDistanceKm
		s.DurationMinutes = with.TotalDurationMinutes - base.TotalDurationMinutes
		s.TourMinutes = with.TotalDurationMinutes
		s.Overloaded = with.Load > vehicle.Capacity
		return s, nil
	}

	solo := opts
	solo.ReturnToDepot = boolPtr(true)
	trip, err := SimulateTour(policy, day, []domain.Order{order}, policy.StartHour, policy.StartMinute, policy.DeadlineHour, solo)
	if err != nil {
		return s, err
	}
	s.Mode = domain.SlotSolo
	s.DistanceKm = trip.TotalDistanceKm
	s.DurationMinutes = trip.TotalDurationMinutes
	s.TourMinutes = trip.TotalDurationMinutes
	s.Overloaded = order.Size > vehicle.Capacity
	return s, nil
}

func nearCluster(policy domain.Policy, order domain.Order, current []domain.Order) bool {
	for _, o := range current {
		if geo.Distance(*o.Location, *order.Location) <= policy.ClusterRadiusKm {
			return true
		}
	}
	return false
}
