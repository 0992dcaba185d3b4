package dto

import (
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/services"
)

// Days are calendar dates (YYYY-MM-DD) in the service time zone.
type PlanRequest struct {
	Zone       string   `json:"zone"`
	Days       []string `json:"days"`
	VehicleIDs []string `json:"vehicle_ids"`
	UseSolver  bool     `json:"use_solver"`
	DryRun     bool     `json:"dry_run"`
}

type StopResponse struct {
	OrderID       string             `json:"order_id"`
	Location      domain.Coordinates `json:"location"`
	ArriveAt      time.Time          `json:"arrive_at"`
	DepartAt      time.Time          `json:"depart_at"`
	TravelMinutes int                `json:"travel_minutes"`
	LegKm         float64            `json:"leg_km"`
	Late          bool               `json:"late"`
}

type TourResponse struct {
	VehicleID            string         `json:"vehicle_id"`
	Day                  string         `json:"day"`
	DepartAt             time.Time      `json:"depart_at"`
	ReturnAt             time.Time      `json:"return_at"`
	ReturnsToDepot       bool           `json:"returns_to_depot"`
	TotalDistanceKm      float64        `json:"total_distance_km"`
	TotalDurationMinutes int            `json:"total_duration_minutes"`
	Load                 int            `json:"load"`
	Overloaded           bool           `json:"overloaded"`
	Stops                []StopResponse `json:"stops"`
}

type PlanResponse struct {
	RunID          string                      `json:"run_id"`
	Source         string                      `json:"source"`
	Degraded       bool                        `json:"degraded"`
	DegradedReason string                      `json:"degraded_reason,omitempty"`
	Persisted      bool                        `json:"persisted"`
	SolverCalls    int                         `json:"solver_calls"`
	Split          bool                        `json:"split"`
	Tours          []TourResponse              `json:"tours"`
	Unassigned     []domain.UnassignedOrder    `json:"unassigned"`
	Unroutable     []string                    `json:"unroutable"`
	Overloads      []services.CapacityOverload `json:"overloads"`
}

func NewTourResponse(t domain.Tour) TourResponse {
	stops := make([]StopResponse, 0, len(t.Stops))
	for _, s := range t.Stops {
		stops = append(stops, StopResponse{
			OrderID:       s.Order.OrderID,
			Location:      s.Location,
			ArriveAt:      s.Arrival,
			DepartAt:      s.Departure,
			TravelMinutes: s.TravelMinutes,
			LegKm:         s.LegKm,
			Late:          s.IsLate,
		})
	}
	return TourResponse{
		VehicleID:            t.VehicleID,
		Day:                  t.Day.Format(time.DateOnly),
		DepartAt:             t.DepartAt,
		ReturnAt:             t.ReturnTime,
		ReturnsToDepot:       t.ReturnsToDepot,
		TotalDistanceKm:      t.TotalDistanceKm,
		TotalDurationMinutes: t.TotalDurationMinutes,
		Load:                 t.Load,
		Overloaded:           t.Overloaded,
		Stops:                stops,
	}
}

func NewPlanResponse(r *services.PlanResult) PlanResponse {
	res := PlanResponse{
		RunID:          r.RunID,
		Source:         r.Source,
		Degraded:       r.Degraded,
		DegradedReason: r.DegradedReason,
		Persisted:      r.Persisted,
		SolverCalls:    r.SolverCalls,
		Split:          r.Split,
		Tours:          make([]TourResponse, 0, len(r.Tours)),
		Unassigned:     r.Unassigned,
		Unroutable:     r.Unroutable,
		Overloads:      r.Overloads,
	}
	for _, t := range r.Tours {
		res.Tours = append(res.Tours, NewTourResponse(t))
	}
	if res.Unassigned == nil {
		res.Unassigned = []domain.UnassignedOrder{}
	}
	if res.Unroutable == nil {
		res.Unroutable = []string{}
	}
	if res.Overloads == nil {
		res.Overloads = []services.CapacityOverload{}
	}
	return res
}
