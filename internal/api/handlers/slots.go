package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"fleet-scheduling-service/internal/api/dto"
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/services"
)

type SlotHandler struct {
	Planner *services.Planner
}

// Suggest proposes delivery days for one order on one vehicle.
func (h *SlotHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	orderID, ok := requireID(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "order id is required")
		return
	}

	q := r.URL.Query()
	vehicleID, ok := requireID(q.Get("vehicle"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "vehicle is required")
		return
	}

	from, err := parseDay(q.Get("from"), h.Planner.Location)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	horizon := 0
	if raw := strings.TrimSpace(q.Get("horizon")); raw != "" {
		horizon, err = strconv.Atoi(raw)
		if err != nil || horizon < 1 || horizon > 366 {
			writeError(w, r, http.StatusBadRequest, "horizon must be between 1 and 366 days")
			return
		}
	}

	suggestions, err := h.Planner.SuggestSlots(r.Context(), orderID, vehicleID, from, horizon)
	if err != nil {
		writeServiceError(w, r, "suggest slots", err)
		return
	}

	if suggestions == nil {
		suggestions = []domain.SlotSuggestion{}
	}

	writeJSON(w, r, http.StatusOK, dto.SlotResponse{
		OrderID:     orderID,
		VehicleID:   vehicleID,
		Suggestions: suggestions,
	})
}
