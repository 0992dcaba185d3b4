package services

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/geo"
)

type HeuristicResult struct {
	Tours      []domain.Tour
	Unassigned []domain.UnassignedOrder
	Unroutable []string
}

// AssignOrdersByDay builds tours without the external solver.
//
// Days are filled in order; within a day each vehicle first takes the
// orders pinned to that day, then fills up from the unpinned pool with a
// capacity-aware nearest-neighbor walk from its depot. The selection is
// then cut at the deadline and deferred orders go back to the pool. This
// is a planning shortcut: it never overloads a vehicle and is fully
// deterministic, but it does not search for a better global assignment.
func AssignOrdersByDay(
	policy domain.Policy,
	orders []domain.Order,
	vehicles []domain.Vehicle,
	days []time.Time,
) (*HeuristicResult, error) {
	if len(vehicles) == 0 {
		return nil, errors.New("assign orders: vehicle list must not be empty")
	}
	days = normalizeDays(days)
	if len(days) == 0 {
		return nil, errors.New("assign orders: at least one day is required")
	}

	res := &HeuristicResult{}
	var pool []domain.Order
	pinned := make(map[time.Time][]domain.Order)

	for _, o := range orders {
		switch {
		case !o.Routable():
			res.Unroutable = append(res.Unroutable, o.OrderID)
		case !slices.ContainsFunc(vehicles, func(v domain.Vehicle) bool { return v.Serves(o.Zone) }):
			res.Unassigned = append(res.Unassigned, domain.UnassignedOrder{OrderID: o.OrderID, Reason: domain.ReasonNoSectorMatch})
		case o.PinnedDate != nil:
			di := slices.IndexFunc(days, func(d time.Time) bool { return o.PinnedTo(d) })
			if di < 0 {
				res.Unassigned = append(res.Unassigned, domain.UnassignedOrder{OrderID: o.OrderID, Reason: domain.ReasonPinnedOutside})
				continue
			}
			pinned[days[di]] = append(pinned[days[di]], o)
		default:
			pool = append(pool, o)
		}
	}

	// Orders once cut by a deadline are reported as such if never placed.
	lateOnce := make(map[string]struct{})

	for _, day := range days {
		dayPinned := pinned[day]

		for _, v := range vehicles {
			remaining := v.Capacity

			fromPinned, _ := selectNearest(v.Start, served(dayPinned, v), remaining)
			remaining -= sizeOf(fromPinned)
			fromPool, _ := selectNearest(v.Start, served(pool, v), remaining)

			selected := append(fromPinned, fromPool...)
			if len(selected) == 0 {
				continue
			}

			cut, err := FindCutoff(policy, day, selected, policy.StartHour, policy.StartMinute, policy.DeadlineHour, OptionsFor(v))
			if err != nil {
				return nil, fmt.Errorf("assign orders: vehicle %s on %s: %w", v.VehicleID, day.Format(time.DateOnly), err)
			}
			for _, o := range cut.Deferred {
				lateOnce[o.OrderID] = struct{}{}
			}
			if len(cut.Kept) == 0 {
				continue
			}

			tour := *cut.Tour
			tour.VehicleID = v.VehicleID
			res.Tours = append(res.Tours, tour)

			kept := idSet(cut.Kept)
			dayPinned = without(dayPinned, kept)
			pool = without(pool, kept)
		}

		for _, o := range dayPinned {
			res.Unassigned = append(res.Unassigned, domain.UnassignedOrder{OrderID: o.OrderID, Reason: domain.ReasonPinnedDeferred})
		}
	}

	for _, o := range pool {
		reason := domain.ReasonNoCapacity
		if _, ok := lateOnce[o.OrderID]; ok {
			reason = domain.ReasonPastDeadline
		}
		res.Unassigned = append(res.Unassigned, domain.UnassignedOrder{OrderID: o.OrderID, Reason: reason})
	}

	return res, nil
}

// selectNearest greedily picks, from the current position, the closest
// candidate that still fits in capacity until nothing else fits. It
// returns the picked orders in visiting order and the ones left behind.
func selectNearest(start domain.Coordinates, candidates []domain.Order, capacity int) ([]domain.Order, []domain.Order) {
	left := append([]domain.Order{}, candidates...)
	var picked []domain.Order
	current := start

	for {
		best := -1
		bestKm := math.MaxFloat64
		for i, o := range left {
			if o.Size > capacity {
				continue
			}
			if d := geo.Distance(current, *o.Location); d < bestKm {
				bestKm = d
				best = i
			}
		}
		if best < 0 {
			return picked, left
		}

		o := left[best]
		picked = append(picked, o)
		capacity -= o.Size
		current = *o.Location
		left = append(left[:best], left[best+1:]...)
	}
}

func served(orders []domain.Order, v domain.Vehicle) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if v.Serves(o.Zone) {
			out = append(out, o)
		}
	}
	return out
}

func sizeOf(orders []domain.Order) int {
	n := 0
	for _, o := range orders {
		n += o.Size
	}
	return n
}

func idSet(orders []domain.Order) map[string]struct{} {
	out := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		out[o.OrderID] = struct{}{}
	}
	return out
}

func without(orders []domain.Order, drop map[string]struct{}) []domain.Order {
	out := orders[:0:0]
	for _, o := range orders {
		if _, ok := drop[o.OrderID]; !ok {
			out = append(out, o)
		}
	}
	return out
}
