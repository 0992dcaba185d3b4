package domain

// Wire types for a VROOM-compatible optimization endpoint.
// All times are seconds since local midnight, all distances meters.

type SolverJob struct {
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
	Delivery []int     `json:"delivery,omitempty"`
	Service  int       `json:"service,omitempty"`
	Skills   []int     `json:"skills,omitempty"`
}

type SolverVehicle struct {
	ID         int       `json:"id"`
	Profile    string    `json:"profile,omitempty"`
	Start      []float64 `json:"start"`
	End        []float64 `json:"end,omitempty"`
	Capacity   []int     `json:"capacity"`
	TimeWindow []int     `json:"time_window"`
	Skills     []int     `json:"skills,omitempty"`
}

type SolverRequest struct {
	Jobs     []SolverJob     `json:"jobs"`
	Vehicles []SolverVehicle `json:"vehicles"`
}

type SolverStep struct {
	Type     string `json:"type"`
	ID       int    `json:"id,omitempty"`
	Arrival  int    `json:"arrival"`
	Duration int    `json:"duration"`
	Distance int    `json:"distance"`
	Service  int    `json:"service"`
}

type SolverRoute struct {
	Vehicle  int          `json:"vehicle"`
	Steps    []SolverStep `json:"steps"`
	Distance int          `json:"distance"`
	Duration int          `json:"duration"`
}

type SolverUnassigned struct {
	ID int `json:"id"`
}

type SolverResponse struct {
	Code       int                `json:"code"`
	Error      string             `json:"error,omitempty"`
	Routes     []SolverRoute      `json:"routes"`
	Unassigned []SolverUnassigned `json:"unassigned"`
}
