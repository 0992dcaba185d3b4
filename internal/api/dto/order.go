package dto

import (
	"time"

	"fleet-scheduling-service/internal/domain"
)

type OrderResponse struct {
	OrderID       string              `json:"order_id"`
	Address       string              `json:"address"`
	Location      *domain.Coordinates `json:"location"`
	Size          int                 `json:"size"`
	Zone          string              `json:"zone"`
	Status        string              `json:"status"`
	PinnedDate    *string             `json:"pinned_date"`
	VehicleID     string              `json:"vehicle_id,omitempty"`
	ScheduledDate *string             `json:"scheduled_date"`
	ArrivalAt     *time.Time          `json:"arrival_at"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func NewOrderResponse(o domain.Order) OrderResponse {
	return OrderResponse{
		OrderID:       o.OrderID,
		Address:       o.Address,
		Location:      o.Location,
		Size:          o.Size,
		Zone:          o.Zone,
		Status:        string(o.Status),
		PinnedDate:    date(o.PinnedDate),
		VehicleID:     o.VehicleID,
		ScheduledDate: date(o.ScheduledDate),
		ArrivalAt:     o.ArrivalAt,
	}
}

func date(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

type SlotResponse struct {
	OrderID     string                  `json:"order_id"`
	VehicleID   string                  `json:"vehicle_id"`
	Suggestions []domain.SlotSuggestion `json:"suggestions"`
}
