package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
)

const (
	SourceSolver    = "solver"
	SourceHeuristic = "heuristic"
)

// Planner wires the pure planning functions to the record store, the
// geocoder, the solver and the change notifier.
type Planner struct {
	Repo     ports.OrderRepository
	Geocoder ports.Geocoder
	Solver   ports.Solver
	Notifier ports.Notifier
	Policy   domain.Policy
	Fleet    []domain.Vehicle
	// Location is the time zone planning days are expressed in.
	Location *time.Location
	// GeocodeWorkers bounds concurrent geocoder calls. Defaults to 5.
	GeocodeWorkers int
}

type PlanRequest struct {
	Zone       string
	Days       []time.Time
	VehicleIDs []string
	UseSolver  bool
	Persist    bool
}

// CapacityOverload is a tour whose load exceeds its vehicle capacity.
type CapacityOverload struct {
	VehicleID string    `json:"vehicle_id"`
	Day       time.Time `json:"day"`
	Used      int       `json:"used"`
	Capacity  int       `json:"capacity"`
	Overflow  int       `json:"overflow"`
}

type PlanResult struct {
	RunID          string
	Source         string
	Degraded       bool
	DegradedReason string
	Tours          []domain.Tour
	Unassigned     []domain.UnassignedOrder
	Unroutable     []string
	Overloads      []CapacityOverload
	Persisted      bool
	SolverCalls    int
	Split          bool
}

// Assignments lists the persisted form of every non-empty tour.
func (r *PlanResult) Assignments() []domain.Assignment {
	var out []domain.Assignment
	for _, t := range r.Tours {
		out = append(out, t.Assignments()...)
	}
	return out
}

// PlanDays plans the pending orders of a zone over the requested days.
func (p *Planner) PlanDays(ctx context.Context, req PlanRequest) (res *PlanResult, err error) {
	defer obs.Time(ctx, "plan_days")(&err)

	vehicles, err := p.vehicles(req.VehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("plan days: %w", err)
	}

	days := p.localDays(req.Days)
	if len(days) == 0 {
		return nil, errors.New("plan days: at least one day is required")
	}

	orders, err := p.Repo.List(ctx, ports.OrderFilter{
		Zone:     req.Zone,
		Statuses: []domain.OrderStatus{domain.StatusPending},
	})
	if err != nil {
		return nil, fmt.Errorf("plan days: list orders: %w", err)
	}

	orders, err = p.resolveLocations(ctx, orders)
	if err != nil {
		return nil, fmt.Errorf("plan days: %w", err)
	}

	res = &PlanResult{RunID: uuid.NewString()}

	if req.UseSolver {
		adapter := &SolverAdapter{Solver: p.Solver, Policy: p.Policy}
		sr, serr := adapter.Optimize(ctx, orders, vehicles, days)
		switch {
		case serr == nil:
			res.Source = SourceSolver
			res.Tours = sr.Tours
			res.Unassigned = sr.Unassigned
			res.Unroutable = sr.Unroutable
			res.SolverCalls = sr.Calls
			res.Split = sr.Split
		case errors.Is(serr, domain.ErrSolverUnavailable):
			log.Printf("plan days: run=%s solver unavailable, falling back to heuristic: %v", res.RunID, serr)
			res.Degraded = true
			res.DegradedReason = serr.Error()
		default:
			return nil, fmt.Errorf("plan days: %w", serr)
		}
	}

	if res.Source == "" {
		hr, herr := AssignOrdersByDay(p.Policy, orders, vehicles, days)
		if herr != nil {
			return nil, fmt.Errorf("plan days: %w", herr)
		}
		res.Source = SourceHeuristic
		res.Tours = hr.Tours
		res.Unassigned = hr.Unassigned
		res.Unroutable = hr.Unroutable
	}

	obs.PlanRuns.WithLabelValues(res.Source, strconv.FormatBool(res.Degraded)).Inc()

	res.Overloads = overloads(res.Tours, vehicles)

	if !req.Persist {
		return res, nil
	}

	assignments := res.Assignments()
	if len(assignments) > 0 {
		if err := p.Repo.BatchUpsert(ctx, assignments); err != nil {
			return nil, fmt.Errorf("plan days: %w", persistenceError(assignments, err))
		}
	}
	res.Persisted = true

	p.publish(ctx, res, req.Zone, assignments)

	return res, nil
}

type CutoffRequest struct {
	Day       time.Time
	VehicleID string
	OrderIDs  []string
	// DeadlineHour overrides the policy deadline when positive.
	DeadlineHour int
}

// Cutoff finds how many of the given orders one vehicle can serve before
// the deadline.
func (p *Planner) Cutoff(ctx context.Context, req CutoffRequest) (res CutoffResult, err error) {
	defer obs.Time(ctx, "cutoff")(&err)

	vehicle, orders, err := p.tourInput(ctx, req.VehicleID, req.OrderIDs)
	if err != nil {
		return CutoffResult{}, fmt.Errorf("cutoff: %w", err)
	}

	deadline := p.Policy.DeadlineHour
	if req.DeadlineHour > 0 {
		deadline = req.DeadlineHour
	}

	return FindCutoff(p.Policy, p.localDay(req.Day), orders, p.Policy.StartHour, p.Policy.StartMinute, deadline, OptionsFor(vehicle))
}

// Presets runs the cutoff once per configured deadline preset.
func (p *Planner) Presets(ctx context.Context, req CutoffRequest) (res []PresetResult, err error) {
	defer obs.Time(ctx, "cutoff_presets")(&err)

	vehicle, orders, err := p.tourInput(ctx, req.VehicleID, req.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("cutoff presets: %w", err)
	}

	return CutoffPresets(p.Policy, p.localDay(req.Day), orders, OptionsFor(vehicle))
}

type SimulateRequest struct {
	Day           time.Time
	VehicleID     string
	OrderIDs      []string
	PreserveOrder bool
	ReturnToDepot *bool
	StartHour     *int
	StartMinute   *int
	DeadlineHour  *int
}

// Simulate times an ad-hoc tour over the given orders.
func (p *Planner) Simulate(ctx context.Context, req SimulateRequest) (tour *domain.Tour, err error) {
	defer obs.Time(ctx, "simulate")(&err)

	vehicle, orders, err := p.tourInput(ctx, req.VehicleID, req.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	opts := OptionsFor(vehicle)
	opts.PreserveOrder = req.PreserveOrder
	if req.ReturnToDepot != nil {
		opts.ReturnToDepot = req.ReturnToDepot
	}

	startH, startM, deadlineH := p.Policy.StartHour, p.Policy.StartMinute, p.Policy.DeadlineHour
	if req.StartHour != nil {
		startH = *req.StartHour
	}
	if req.StartMinute != nil {
		startM = *req.StartMinute
	}
	if req.DeadlineHour != nil {
		deadlineH = *req.DeadlineHour
	}

	return SimulateTour(p.Policy, p.localDay(req.Day), orders, startH, startM, deadlineH, opts)
}

// SuggestSlots loads an order and the vehicle's schedule over the horizon
// and proposes delivery days.
func (p *Planner) SuggestSlots(ctx context.Context, orderID, vehicleID string, from time.Time, horizonDays int) (out []domain.SlotSuggestion, err error) {
	defer obs.Time(ctx, "suggest_slots")(&err)

	vehicle, err := p.vehicle(vehicleID)
	if err != nil {
		return nil, fmt.Errorf("suggest slots: %w", err)
	}

	found, err := p.Repo.List(ctx, ports.OrderFilter{IDs: []string{orderID}})
	if err != nil {
		return nil, fmt.Errorf("suggest slots: load order: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("suggest slots: order %s: %w", orderID, domain.ErrNotFound)
	}
	found, err = p.resolveLocations(ctx, found)
	if err != nil {
		return nil, fmt.Errorf("suggest slots: %w", err)
	}
	order := found[0]

	if horizonDays <= 0 {
		horizonDays = p.Policy.HorizonDays
	}
	start := p.localDay(from)
	end := start.AddDate(0, 0, horizonDays)

	existing, err := p.Repo.List(ctx, ports.OrderFilter{
		Statuses: []domain.OrderStatus{domain.StatusScheduled},
		From:     &start,
		To:       &end,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest slots: list scheduled orders: %w", err)
	}

	return SuggestSlots(p.Policy, order, existing, vehicle, start, horizonDays)
}

func (p *Planner) tourInput(ctx context.Context, vehicleID string, orderIDs []string) (domain.Vehicle, []domain.Order, error) {
	vehicle, err := p.vehicle(vehicleID)
	if err != nil {
		return domain.Vehicle{}, nil, err
	}
	if len(orderIDs) == 0 {
		return vehicle, nil, nil
	}

	orders, err := p.Repo.List(ctx, ports.OrderFilter{IDs: orderIDs})
	if err != nil {
		return domain.Vehicle{}, nil, fmt.Errorf("load orders: %w", err)
	}

	byID := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		byID[o.OrderID] = o
	}
	// Keep the caller's order; it matters when PreserveOrder is set.
	ordered := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		o, ok := byID[id]
		if !ok {
			return domain.Vehicle{}, nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		ordered = append(ordered, o)
	}

	ordered, err = p.resolveLocations(ctx, ordered)
	if err != nil {
		return domain.Vehicle{}, nil, err
	}
	return vehicle, ordered, nil
}

type geocodeResult struct {
	idx    int
	coords domain.Coordinates
	err    error
}

// resolveLocations geocodes orders that have an address but no point and
// writes the resolved points back. The first failure aborts the batch.
func (p *Planner) resolveLocations(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	var pending []int
	for i, o := range orders {
		if !o.Routable() && strings.TrimSpace(o.Address) != "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 || p.Geocoder == nil {
		return orders, nil
	}

	workers := p.GeocodeWorkers
	if workers <= 0 {
		workers = 5
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, workers)
	resultsCh := make(chan geocodeResult, len(pending))
	var wg sync.WaitGroup

	for _, idx := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			c, err := p.Geocoder.Resolve(ctx, orders[i].Address)
			if err != nil {
				resultsCh <- geocodeResult{idx: i, err: err}
				cancel()
				return
			}
			resultsCh <- geocodeResult{idx: i, coords: c}
		}(idx)
	}

	wg.Wait()
	close(resultsCh)

	out := slices.Clone(orders)
	var firstErr *domain.GeocodingError
	resolved := make([]geocodeResult, 0, len(pending))
	for r := range resultsCh {
		if r.err != nil {
			// Cancellation noise from sibling workers is not the root cause.
			if firstErr == nil || (errors.Is(firstErr.Err, context.Canceled) && !errors.Is(r.err, context.Canceled)) {
				firstErr = &domain.GeocodingError{OrderID: orders[r.idx].OrderID, Address: orders[r.idx].Address, Err: r.err}
			}
			continue
		}
		resolved = append(resolved, r)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	slices.SortFunc(resolved, func(a, b geocodeResult) int { return a.idx - b.idx })
	for _, r := range resolved {
		c := r.coords
		out[r.idx].Location = &c
		if err := p.Repo.Update(ctx, out[r.idx].OrderID, ports.OrderUpdate{Location: &c}); err != nil {
			return nil, fmt.Errorf("store coordinates of order %s: %w", out[r.idx].OrderID, err)
		}
	}

	return out, nil
}

func (p *Planner) publish(ctx context.Context, res *PlanResult, zone string, assignments []domain.Assignment) {
	if p.Notifier == nil || len(assignments) == 0 {
		return
	}
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.OrderID)
	}
	evt := ports.PlanEvent{
		Type:     ports.EventPlanApplied,
		RunID:    res.RunID,
		Zone:     zone,
		OrderIDs: ids,
		At:       time.Now().UTC(),
	}
	if err := p.Notifier.Publish(ctx, evt); err != nil {
		log.Printf("plan days: run=%s publish %s: %v", res.RunID, evt.Type, err)
	}
}

func (p *Planner) vehicles(ids []string) ([]domain.Vehicle, error) {
	if len(p.Fleet) == 0 {
		return nil, errors.New("fleet is empty")
	}
	if len(ids) == 0 {
		return slices.Clone(p.Fleet), nil
	}
	out := make([]domain.Vehicle, 0, len(ids))
	for _, id := range ids {
		v, err := p.vehicle(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *Planner) vehicle(id string) (domain.Vehicle, error) {
	for _, v := range p.Fleet {
		if v.VehicleID == id {
			return v, nil
		}
	}
	return domain.Vehicle{}, fmt.Errorf("vehicle %q: %w", id, domain.ErrNotFound)
}

func (p *Planner) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p *Planner) localDay(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return domain.Day(t.In(p.location()))
}

func (p *Planner) localDays(days []time.Time) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		out = append(out, p.localDay(d))
	}
	return out
}

func overloads(tours []domain.Tour, vehicles []domain.Vehicle) []CapacityOverload {
	byID := make(map[string]domain.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.VehicleID] = v
	}
	var out []CapacityOverload
	for _, t := range tours {
		v, ok := byID[t.VehicleID]
		if !ok {
			continue
		}
		r := CheckCapacity(t.Orders(), v)
		if r.Fits {
			continue
		}
		out = append(out, CapacityOverload{
			VehicleID: v.VehicleID,
			Day:       t.Day,
			Used:      r.Used,
			Capacity:  v.Capacity,
			Overflow:  r.Overflow(),
		})
	}
	return out
}

func persistenceError(assignments []domain.Assignment, err error) error {
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		return pe
	}
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.OrderID)
	}
	return &domain.PersistenceError{OrderIDs: ids, Err: err}
}
