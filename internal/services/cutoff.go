package services

import (
	"fmt"
	"time"

	"fleet-scheduling-service/internal/domain"
)

// CutoffResult splits a candidate set into the stops that fit before the
// deadline and those that must move to another day. Kept is a prefix of
// the nearest-neighbor sequence of the full set.
type CutoffResult struct {
	Kept       []domain.Order
	Deferred   []domain.Order
	Deadline   time.Time
	ReturnTime time.Time
	// Tour is the timed tour of the kept stops.
	Tour *domain.Tour
}

// NoStopPossible is true when not even the first stop fits. Callers must
// surface this instead of silently dropping the orders.
func (r CutoffResult) NoStopPossible() bool {
	return len(r.Kept) == 0 && len(r.Deferred) > 0
}

// FindCutoff simulates the full set in nearest-neighbor order and keeps
// stops while arrival plus service ends by the deadline. The first stop
// that would finish late and every stop after it are deferred.
func FindCutoff(
	policy domain.Policy,
	day time.Time,
	orders []domain.Order,
	startHour, startMinute, deadlineHour int,
	opts SimulateOptions,
) (CutoffResult, error) {
	full := opts
	full.PreserveOrder = false

	tour, err := SimulateTour(policy, day, orders, startHour, startMinute, deadlineHour, full)
	if err != nil {
		return CutoffResult{}, fmt.Errorf("find cutoff: %w", err)
	}

	deadline := domain.ClockOn(day, deadlineHour, 0)

	cut := len(tour.Stops)
	for i, s := range tour.Stops {
		if s.Arrival.Add(time.Duration(s.ServiceMinutes) * time.Minute).After(deadline) {
			cut = i
			break
		}
	}

	sequenced := tour.Orders()
	res := CutoffResult{
		Kept:     append([]domain.Order{}, sequenced[:cut]...),
		Deferred: append([]domain.Order{}, sequenced[cut:]...),
		Deadline: deadline,
	}

	// Re-time the kept prefix so the return leg starts from its last stop.
	kept := opts
	kept.PreserveOrder = true
	keptTour, err := SimulateTour(policy, day, res.Kept, startHour, startMinute, deadlineHour, kept)
	if err != nil {
		return CutoffResult{}, fmt.Errorf("find cutoff: time kept stops: %w", err)
	}
	res.Tour = keptTour
	res.ReturnTime = keptTour.ReturnTime

	return res, nil
}

type PresetResult struct {
	Preset domain.Preset
	CutoffResult
}

// CutoffPresets runs FindCutoff once per configured preset. Presets are
// independent alternatives over the same candidate set.
func CutoffPresets(
	policy domain.Policy,
	day time.Time,
	orders []domain.Order,
	opts SimulateOptions,
) ([]PresetResult, error) {
	out := make([]PresetResult, 0, len(policy.Presets))
	for _, p := range policy.Presets {
		res, err := FindCutoff(policy, day, orders, policy.StartHour, policy.StartMinute, p.DeadlineHour, opts)
		if err != nil {
			return nil, fmt.Errorf("cutoff preset %q: %w", p.Name, err)
		}
		out = append(out, PresetResult{Preset: p, CutoffResult: res})
	}
	return out, nil
}
