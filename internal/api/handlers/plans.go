package handlers

import (
	"net/http"
	"strings"
	"time"

	"fleet-scheduling-service/internal/api/dto"
	"fleet-scheduling-service/internal/services"
)

type PlanHandler struct {
	Planner *services.Planner
}

// Plan assigns the pending orders of a zone to vehicles over the given
// days and persists the result unless dry_run is set.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Days) == 0 {
		writeError(w, r, http.StatusBadRequest, "days is required")
		return
	}

	days := make([]time.Time, 0, len(req.Days))
	for _, s := range req.Days {
		if strings.TrimSpace(s) == "" {
			writeError(w, r, http.StatusBadRequest, "days must not contain empty dates")
			return
		}
		d, err := parseDay(s, h.Planner.Location)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		days = append(days, d)
	}

	res, err := h.Planner.PlanDays(r.Context(), services.PlanRequest{
		Zone:       strings.TrimSpace(req.Zone),
		Days:       days,
		VehicleIDs: req.VehicleIDs,
		UseSolver:  req.UseSolver,
		Persist:    !req.DryRun,
	})
	if err != nil {
		writeServiceError(w, r, "plan days", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewPlanResponse(res))
}
