package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/ports"
)

// greedySolver places each job on the first vehicle carrying all of its
// skills with capacity left, up to MaxJobs per vehicle. Every leg takes
// ten minutes and ten kilometres.
type greedySolver struct {
	MaxVehicles int
	MaxJobs     int
	Err         error

	mu    sync.Mutex
	calls []domain.SolverRequest
}

func (s *greedySolver) Solve(_ context.Context, req domain.SolverRequest) (domain.SolverResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.Err != nil {
		return domain.SolverResponse{}, s.Err
	}
	if s.MaxVehicles > 0 && len(req.Vehicles) > s.MaxVehicles {
		return domain.SolverResponse{}, fmt.Errorf("solver: %d vehicles: %w", len(req.Vehicles), domain.ErrTooManyVehicles)
	}

	type load struct {
		jobs []domain.SolverJob
		used int
	}
	loads := make([]load, len(req.Vehicles))
	var resp domain.SolverResponse

	for _, j := range req.Jobs {
		placed := false
		for vi, v := range req.Vehicles {
			if s.MaxJobs > 0 && len(loads[vi].jobs) >= s.MaxJobs {
				continue
			}
			if loads[vi].used+j.Delivery[0] > v.Capacity[0] {
				continue
			}
			if !hasSkills(v.Skills, j.Skills) {
				continue
			}
			loads[vi].jobs = append(loads[vi].jobs, j)
			loads[vi].used += j.Delivery[0]
			placed = true
			break
		}
		if !placed {
			resp.Unassigned = append(resp.Unassigned, domain.SolverUnassigned{ID: j.ID})
		}
	}

	for vi, v := range req.Vehicles {
		if len(loads[vi].jobs) == 0 {
			continue
		}
		t := v.TimeWindow[0]
		travel, dist := 0, 0
		route := domain.SolverRoute{Vehicle: v.ID}
		route.Steps = append(route.Steps, domain.SolverStep{Type: "start", Arrival: t})
		for _, j := range loads[vi].jobs {
			t += 600
			travel += 600
			dist += 10000
			route.Steps = append(route.Steps, domain.SolverStep{
				Type: "job", ID: j.ID, Arrival: t, Duration: travel, Distance: dist, Service: j.Service,
			})
			t += j.Service
		}
		t += 600
		travel += 600
		dist += 10000
		route.Steps = append(route.Steps, domain.SolverStep{Type: "end", Arrival: t, Duration: travel, Distance: dist})
		route.Distance = dist
		route.Duration = travel
		resp.Routes = append(resp.Routes, route)
	}

	return resp, nil
}

func (s *greedySolver) Calls() []domain.SolverRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func hasSkills(have, need []int) bool {
	for _, n := range need {
		if !slices.Contains(have, n) {
			return false
		}
	}
	return true
}

// memRepo is an in-memory OrderRepository.
type memRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	upsertErr error
	upserts   [][]domain.Assignment
}

func newMemRepo(orders ...domain.Order) *memRepo {
	r := &memRepo{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		r.orders[o.OrderID] = o
	}
	return r
}

func (r *memRepo) List(_ context.Context, f ports.OrderFilter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Order
	for _, o := range r.orders {
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, o.OrderID) {
			continue
		}
		if f.Zone != "" && o.Zone != f.Zone {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		if f.From != nil && (o.ScheduledDate == nil || o.ScheduledDate.Before(*f.From)) {
			continue
		}
		if f.To != nil && (o.ScheduledDate == nil || !o.ScheduledDate.Before(*f.To)) {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		switch {
		case a.OrderID < b.OrderID:
			return -1
		case a.OrderID > b.OrderID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *memRepo) Update(_ context.Context, id string, upd ports.OrderUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if upd.Location != nil {
		c := *upd.Location
		o.Location = &c
	}
	if upd.Status != nil {
		o.Status = *upd.Status
	}
	r.orders[id] = o
	return nil
}

func (r *memRepo) BatchUpsert(_ context.Context, as []domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts = append(r.upserts, as)
	for _, a := range as {
		o := r.orders[a.OrderID]
		day, arrival := a.ScheduledDate, a.ArrivalAt
		o.VehicleID = a.VehicleID
		o.ScheduledDate = &day
		o.ArrivalAt = &arrival
		o.Status = domain.StatusScheduled
		r.orders[a.OrderID] = o
	}
	return nil
}

func (r *memRepo) get(id string) domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id]
}

type mapGeocoder struct {
	points map[string]domain.Coordinates
}

func (g mapGeocoder) Resolve(_ context.Context, address string) (domain.Coordinates, error) {
	c, ok := g.points[address]
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("no match for %q", address)
	}
	return c, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []ports.PlanEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, evt ports.PlanEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.err
}
