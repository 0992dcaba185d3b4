package dto

import (
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/services"
)

type SimulateRequest struct {
	Day           string   `json:"day"`
	VehicleID     string   `json:"vehicle_id"`
	OrderIDs      []string `json:"order_ids"`
	PreserveOrder bool     `json:"preserve_order"`
	ReturnToDepot *bool    `json:"return_to_depot"`
	StartHour     *int     `json:"start_hour"`
	StartMinute   *int     `json:"start_minute"`
	DeadlineHour  *int     `json:"deadline_hour"`
}

type CutoffRequest struct {
	Day          string   `json:"day"`
	VehicleID    string   `json:"vehicle_id"`
	OrderIDs     []string `json:"order_ids"`
	DeadlineHour int      `json:"deadline_hour"`
}

type CutoffResponse struct {
	Preset         *domain.Preset `json:"preset,omitempty"`
	Deadline       string         `json:"deadline"`
	Kept           []string       `json:"kept"`
	Deferred       []string       `json:"deferred"`
	NoStopPossible bool           `json:"no_stop_possible"`
	Tour           *TourResponse  `json:"tour"`
}

type PresetsResponse struct {
	Presets []CutoffResponse `json:"presets"`
}

func NewCutoffResponse(r services.CutoffResult) CutoffResponse {
	res := CutoffResponse{
		Deadline:       r.Deadline.Format("15:04"),
		Kept:           orderIDs(r.Kept),
		Deferred:       orderIDs(r.Deferred),
		NoStopPossible: r.NoStopPossible(),
	}
	if r.Tour != nil {
		t := NewTourResponse(*r.Tour)
		res.Tour = &t
	}
	return res
}

func NewPresetsResponse(rs []services.PresetResult) PresetsResponse {
	res := PresetsResponse{Presets: make([]CutoffResponse, 0, len(rs))}
	for _, r := range rs {
		c := NewCutoffResponse(r.CutoffResult)
		p := r.Preset
		c.Preset = &p
		res.Presets = append(res.Presets, c)
	}
	return res
}

func orderIDs(orders []domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	return ids
}
