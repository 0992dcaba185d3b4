package handlers

import (
	"net/http"
	"strings"

	"fleet-scheduling-service/internal/api/dto"
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/ports"
)

// OrderHandler exposes read-only order retrieval endpoints.
type OrderHandler struct {
	Repo ports.OrderRepository
}

var knownStatuses = map[domain.OrderStatus]struct{}{
	domain.StatusPending:   {},
	domain.StatusScheduled: {},
	domain.StatusDelivered: {},
	domain.StatusCancelled: {},
}

// List returns orders, optionally filtered by zone and a comma separated
// status list.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ports.OrderFilter{Zone: strings.TrimSpace(q.Get("zone"))}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
			if _, ok := knownStatuses[st]; !ok {
				writeError(w, r, http.StatusBadRequest, "unknown status "+string(st))
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	orders, err := h.Repo.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "list orders", err)
		return
	}

	res := dto.ListOrdersResponse{Orders: make([]dto.OrderResponse, 0, len(orders))}
	for _, o := range orders {
		res.Orders = append(res.Orders, dto.NewOrderResponse(o))
	}

	writeJSON(w, r, http.StatusOK, res)
}
