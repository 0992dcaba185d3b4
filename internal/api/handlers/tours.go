package handlers

import (
	"net/http"

	"fleet-scheduling-service/internal/api/dto"
	"fleet-scheduling-service/internal/services"
)

// TourHandler exposes single-vehicle what-if tools: timing an ad-hoc tour
// and finding how many stops fit before a deadline.
type TourHandler struct {
	Planner *services.Planner
}

func (h *TourHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req dto.SimulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vehicleID, ok := requireID(req.VehicleID)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "vehicle_id is required")
		return
	}
	if !inRange(req.StartHour, 0, 23) || !inRange(req.StartMinute, 0, 59) || !inRange(req.DeadlineHour, 1, 24) {
		writeError(w, r, http.StatusBadRequest, "start_hour, start_minute or deadline_hour out of range")
		return
	}
	day, err := parseDay(req.Day, h.Planner.Location)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tour, err := h.Planner.Simulate(r.Context(), services.SimulateRequest{
		Day:           day,
		VehicleID:     vehicleID,
		OrderIDs:      req.OrderIDs,
		PreserveOrder: req.PreserveOrder,
		ReturnToDepot: req.ReturnToDepot,
		StartHour:     req.StartHour,
		StartMinute:   req.StartMinute,
		DeadlineHour:  req.DeadlineHour,
	})
	if err != nil {
		writeServiceError(w, r, "simulate tour", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewTourResponse(*tour))
}

func (h *TourHandler) Cutoff(w http.ResponseWriter, r *http.Request) {
	req, ok := h.cutoffRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Planner.Cutoff(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "cutoff", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewCutoffResponse(res))
}

func (h *TourHandler) Presets(w http.ResponseWriter, r *http.Request) {
	req, ok := h.cutoffRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Planner.Presets(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "cutoff presets", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewPresetsResponse(res))
}

func (h *TourHandler) cutoffRequest(w http.ResponseWriter, r *http.Request) (services.CutoffRequest, bool) {
	var req dto.CutoffRequest
	if !decodeJSON(w, r, &req) {
		return services.CutoffRequest{}, false
	}

	vehicleID, ok := requireID(req.VehicleID)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "vehicle_id is required")
		return services.CutoffRequest{}, false
	}
	if req.DeadlineHour < 0 || req.DeadlineHour > 24 {
		writeError(w, r, http.StatusBadRequest, "deadline_hour must be between 1 and 24")
		return services.CutoffRequest{}, false
	}
	day, err := parseDay(req.Day, h.Planner.Location)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return services.CutoffRequest{}, false
	}

	return services.CutoffRequest{
		Day:          day,
		VehicleID:    vehicleID,
		OrderIDs:     req.OrderIDs,
		DeadlineHour: req.DeadlineHour,
	}, true
}
