package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/geo"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
)

// SolverResult is the translated outcome of one optimization, merged
// across batches when the split fallback ran.
type SolverResult struct {
	// One tour per (vehicle, day), including empty ones.
	Tours      []domain.Tour
	Unassigned []domain.UnassignedOrder
	Unroutable []string
	IDs        *IDMap
	Calls      int
	Split      bool
}

// SolverProblem is the request built from the internal model plus the
// bookkeeping needed to translate the answer back.
type SolverProblem struct {
	Request    domain.SolverRequest
	IDs        *IDMap
	Days       []time.Time
	Vehicles   []domain.Vehicle
	Orders     map[string]domain.Order
	Unroutable []string
	Excluded   []domain.UnassignedOrder
}

type SolverAdapter struct {
	Solver ports.Solver
	Policy domain.Policy
}

// BuildProblem turns orders and vehicles into a solver request.
//
// Each (day, vehicle) pair becomes one virtual solver vehicle carrying the
// skill of its day; orders pinned to a day require that skill and so
// cannot move. When any vehicle is restricted to a sector, zoned orders
// also require their zone skill, carried by every vehicle allowed there.
// Virtual vehicles are listed day by day so a split keeps days together.
func (a *SolverAdapter) BuildProblem(orders []domain.Order, vehicles []domain.Vehicle, days []time.Time) (*SolverProblem, error) {
	if len(vehicles) == 0 {
		return nil, errors.New("build solver problem: vehicle list must not be empty")
	}
	days = normalizeDays(days)
	if len(days) == 0 {
		return nil, errors.New("build solver problem: at least one day is required")
	}

	p := &SolverProblem{
		IDs:      NewIDMap(),
		Days:     days,
		Vehicles: vehicles,
		Orders:   make(map[string]domain.Order, len(orders)),
	}

	zoneSkills := map[string]int{}
	if anySector(vehicles) {
		zones := make([]string, 0)
		for _, o := range orders {
			z := normZone(o.Zone)
			if z == "" {
				continue
			}
			if _, ok := zoneSkills[z]; !ok {
				zoneSkills[z] = 0
				zones = append(zones, z)
			}
		}
		slices.Sort(zones)
		for i, z := range zones {
			zoneSkills[z] = len(days) + 1 + i
		}
	}

	start := a.Policy.StartHour*3600 + a.Policy.StartMinute*60
	end := a.Policy.DeadlineHour * 3600

	for di, day := range days {
		for vi, v := range vehicles {
			sv := domain.SolverVehicle{
				ID:         p.IDs.AddSlot(VehicleSlot{VehicleIndex: vi, VehicleID: v.VehicleID, Day: day}),
				Profile:    a.Policy.SolverProfile,
				Start:      v.Start.CoordsToList(),
				Capacity:   []int{v.Capacity},
				TimeWindow: []int{start, end},
				Skills:     []int{di + 1},
			}
			if v.End != nil {
				sv.End = v.End.CoordsToList()
			}
			for z, skill := range zoneSkills {
				if v.Serves(z) {
					sv.Skills = append(sv.Skills, skill)
				}
			}
			slices.Sort(sv.Skills)
			p.Request.Vehicles = append(p.Request.Vehicles, sv)
		}
	}

	for _, o := range orders {
		if !o.Routable() {
			p.Unroutable = append(p.Unroutable, o.OrderID)
			continue
		}

		var skills []int
		if o.PinnedDate != nil {
			di := slices.IndexFunc(days, func(d time.Time) bool { return o.PinnedTo(d) })
			if di < 0 {
				p.Excluded = append(p.Excluded, domain.UnassignedOrder{OrderID: o.OrderID, Reason: domain.ReasonPinnedOutside})
				continue
			}
			skills = append(skills, di+1)
		}
		if skill, ok := zoneSkills[normZone(o.Zone)]; ok {
			if !slices.ContainsFunc(vehicles, func(v domain.Vehicle) bool { return v.Serves(o.Zone) }) {
				p.Excluded = append(p.Excluded, domain.UnassignedOrder{OrderID: o.OrderID, Reason: domain.ReasonNoSectorMatch})
				continue
			}
			skills = append(skills, skill)
		}

		p.Orders[o.OrderID] = o
		p.Request.Jobs = append(p.Request.Jobs, domain.SolverJob{
			ID:       p.IDs.AddOrder(o.OrderID),
			Location: o.Location.CoordsToList(),
			Delivery: []int{o.Size},
			Service:  a.Policy.ServiceMinutes * 60,
			Skills:   skills,
		})
	}

	return p, nil
}

// Optimize sends one request covering every day. When the solver refuses
// it for its vehicle count, the split fallback takes over.
func (a *SolverAdapter) Optimize(ctx context.Context, orders []domain.Order, vehicles []domain.Vehicle, days []time.Time) (*SolverResult, error) {
	if a.Solver == nil {
		return nil, fmt.Errorf("optimize: %w: no solver configured", domain.ErrSolverUnavailable)
	}

	p, err := a.BuildProblem(orders, vehicles, days)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	res, err := a.Solve(ctx, p)
	if errors.Is(err, domain.ErrTooManyVehicles) {
		log.Printf("optimize: solver refused %d vehicles, splitting request", len(p.Request.Vehicles))
		return a.SolveSplit(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Solve issues a single solver call for the whole problem.
func (a *SolverAdapter) Solve(ctx context.Context, p *SolverProblem) (*SolverResult, error) {
	if len(p.Request.Jobs) == 0 {
		return a.translate(p, nil, 0)
	}

	resp, err := a.Solver.Solve(ctx, p.Request)
	if err != nil {
		obs.SolverCalls.WithLabelValues(solverOutcome(err)).Inc()
		return nil, fmt.Errorf("solve: %w", err)
	}
	obs.SolverCalls.WithLabelValues("ok").Inc()

	return a.translate(p, []domain.SolverResponse{resp}, 1)
}

// SolveSplit partitions the virtual vehicles into two halves (the first
// half of the days, then the rest) and solves them one after the other.
// The second batch only sees orders the first batch left unplaced. Routes
// are merged per (vehicle, day) and days without a route stay as empty
// tours. A refusal of either batch is fatal for this run.
func (a *SolverAdapter) SolveSplit(ctx context.Context, p *SolverProblem) (*SolverResult, error) {
	obs.SolverSplits.Inc()

	if len(p.Days) < 2 {
		return nil, fmt.Errorf("solve split: cannot split %d day: %w", len(p.Days), domain.ErrTooManyVehicles)
	}
	// Virtual vehicles are laid out day by day; cut on a day boundary.
	half := (len(p.Days) + 1) / 2 * len(p.Vehicles)

	first := domain.SolverRequest{
		Jobs:     p.Request.Jobs,
		Vehicles: p.Request.Vehicles[:half],
	}
	resp1, err := a.Solver.Solve(ctx, first)
	if err != nil {
		obs.SolverCalls.WithLabelValues(solverOutcome(err)).Inc()
		return nil, fmt.Errorf("solve split: batch 1 of 2: %w", err)
	}
	obs.SolverCalls.WithLabelValues("ok").Inc()

	placed := make(map[int]struct{})
	for _, r := range resp1.Routes {
		for _, s := range r.Steps {
			if s.Type == "job" {
				placed[s.ID] = struct{}{}
			}
		}
	}

	remaining := make([]domain.SolverJob, 0, len(p.Request.Jobs))
	for _, j := range p.Request.Jobs {
		if _, ok := placed[j.ID]; !ok {
			remaining = append(remaining, j)
		}
	}

	responses := []domain.SolverResponse{{Routes: resp1.Routes}}
	calls := 1

	// Nothing left to place: the second half of the days stays empty.
	if len(remaining) > 0 {
		second := domain.SolverRequest{
			Jobs:     remaining,
			Vehicles: p.Request.Vehicles[half:],
		}
		resp2, err := a.Solver.Solve(ctx, second)
		if err != nil {
			obs.SolverCalls.WithLabelValues(solverOutcome(err)).Inc()
			return nil, fmt.Errorf("solve split: batch 2 of 2: %w", err)
		}
		obs.SolverCalls.WithLabelValues("ok").Inc()
		responses = append(responses, resp2)
		calls++
	}

	res, err := a.translate(p, responses, calls)
	if err != nil {
		return nil, fmt.Errorf("solve split: %w", err)
	}
	res.Split = true

	return res, nil
}

// translate resolves solver ids back to orders and vehicles and builds
// one tour per virtual vehicle.
func (a *SolverAdapter) translate(p *SolverProblem, responses []domain.SolverResponse, calls int) (*SolverResult, error) {
	routes := make(map[int]domain.SolverRoute)
	var unassigned []domain.SolverUnassigned
	for _, r := range responses {
		for _, route := range r.Routes {
			if _, dup := routes[route.Vehicle]; dup {
				return nil, fmt.Errorf("translate solver response: vehicle %d routed twice", route.Vehicle)
			}
			routes[route.Vehicle] = route
		}
		unassigned = append(unassigned, r.Unassigned...)
	}

	res := &SolverResult{
		IDs:        p.IDs,
		Calls:      calls,
		Unroutable: p.Unroutable,
		Unassigned: append([]domain.UnassignedOrder{}, p.Excluded...),
	}

	seen := make(map[string]struct{})
	for _, sv := range p.Request.Vehicles {
		slot, ok := p.IDs.Slot(sv.ID)
		if !ok {
			return nil, fmt.Errorf("translate solver response: unknown vehicle id %d", sv.ID)
		}
		vehicle := p.Vehicles[slot.VehicleIndex]

		route, ok := routes[sv.ID]
		if !ok {
			res.Tours = append(res.Tours, a.emptyTour(vehicle, slot.Day))
			continue
		}

		tour, err := a.routeToTour(p, vehicle, slot.Day, route)
		if err != nil {
			return nil, fmt.Errorf("translate solver response: %w", err)
		}
		for _, id := range tour.OrderIDs() {
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("translate solver response: order %s placed twice", id)
			}
			seen[id] = struct{}{}
		}
		res.Tours = append(res.Tours, *tour)
	}

	for _, u := range unassigned {
		orderID, ok := p.IDs.OrderID(u.ID)
		if !ok {
			return nil, fmt.Errorf("translate solver response: unknown unassigned job id %d", u.ID)
		}
		res.Unassigned = append(res.Unassigned, domain.UnassignedOrder{OrderID: orderID, Reason: domain.ReasonSolver})
	}

	return res, nil
}

func (a *SolverAdapter) emptyTour(v domain.Vehicle, day time.Time) domain.Tour {
	start := a.Policy.StartOn(day)
	return domain.Tour{
		VehicleID:      v.VehicleID,
		Day:            domain.Day(day),
		DepartAt:       start,
		Stops:          []domain.Stop{},
		ReturnTime:     start,
		ReturnsToDepot: v.ReturnsToDepot(),
	}
}

func (a *SolverAdapter) routeToTour(p *SolverProblem, v domain.Vehicle, day time.Time, route domain.SolverRoute) (*domain.Tour, error) {
	// Solver seconds are wall-clock offsets from local midnight.
	at := func(sec int) time.Time { return domain.ClockSecondsOn(day, sec) }
	deadline := a.Policy.DeadlineOn(day)

	tour := a.emptyTour(v, day)
	tour.ReturnsToDepot = false

	// Some solver deployments only return durations; fall back to
	// great-circle legs when no distance is reported.
	haveDistance := route.Distance > 0
	prevLocation := v.Start
	prevDuration := 0
	prevDistanceKm := 0.0

	for _, s := range route.Steps {
		switch s.Type {
		case "start":
			tour.DepartAt = at(s.Arrival)
			tour.ReturnTime = tour.DepartAt
		case "job":
			orderID, ok := p.IDs.OrderID(s.ID)
			if !ok {
				return nil, fmt.Errorf("unknown job id %d", s.ID)
			}
			o, ok := p.Orders[orderID]
			if !ok {
				return nil, fmt.Errorf("job %d resolves to unknown order %s", s.ID, orderID)
			}

			cum := float64(s.Distance) / 1000
			if !haveDistance {
				cum = prevDistanceKm + geo.Distance(prevLocation, *o.Location)
			}

			arrival := at(s.Arrival)
			tour.Stops = append(tour.Stops, domain.Stop{
				Order:          o,
				Location:       *o.Location,
				Arrival:        arrival,
				Departure:      arrival.Add(time.Duration(s.Service) * time.Second),
				TravelMinutes:  (s.Duration - prevDuration) / 60,
				ServiceMinutes: s.Service / 60,
				LegKm:          cum - prevDistanceKm,
				CumulativeKm:   cum,
				IsLate:         arrival.After(deadline),
			})
			tour.Load += o.Size
			tour.ReturnTime = arrival.Add(time.Duration(s.Service) * time.Second)

			prevLocation = *o.Location
			prevDuration = s.Duration
			prevDistanceKm = cum
		case "end":
			tour.ReturnsToDepot = true
			tour.ReturnTime = at(s.Arrival)
			if haveDistance {
				prevDistanceKm = float64(s.Distance) / 1000
			} else if v.End != nil {
				prevDistanceKm += geo.Distance(prevLocation, *v.End)
			}
		}
	}

	tour.TotalDistanceKm = prevDistanceKm
	tour.TotalDurationMinutes = int(tour.ReturnTime.Sub(tour.DepartAt) / time.Minute)
	tour.Overloaded = !CheckCapacity(tour.Orders(), v).Fits

	return &tour, nil
}

func solverOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTooManyVehicles):
		return "too_many_vehicles"
	case errors.Is(err, domain.ErrSolverRejected):
		return "rejected"
	case errors.Is(err, domain.ErrSolverUnavailable):
		return "unavailable"
	}
	return "error"
}

func normalizeDays(days []time.Time) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = domain.Day(d)
		if !slices.ContainsFunc(out, func(x time.Time) bool { return x.Equal(d) }) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

func anySector(vehicles []domain.Vehicle) bool {
	return slices.ContainsFunc(vehicles, func(v domain.Vehicle) bool { return v.Sector != "" })
}

func normZone(z string) string { return strings.ToLower(strings.TrimSpace(z)) }
