package services

import (
	"time"

	"fleet-scheduling-service/internal/domain"
)

// CapacityReport is the outcome of CheckCapacity. Remaining goes negative
// when the vehicle is overloaded.
type CapacityReport struct {
	Fits      bool `json:"fits"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
}

func (r CapacityReport) Overflow() int {
	if r.Remaining >= 0 {
		return 0
	}
	return -r.Remaining
}

// CheckCapacity sums order sizes against the vehicle capacity.
// Overflow is a reportable condition, not an error.
func CheckCapacity(orders []domain.Order, vehicle domain.Vehicle) CapacityReport {
	used := 0
	for _, o := range orders {
		used += o.Size
	}
	return CapacityReport{
		Fits:      used <= vehicle.Capacity,
		Used:      used,
		Remaining: vehicle.Capacity - used,
	}
}

// CapacityError returns a *domain.CapacityExceededError when the report
// does not fit, nil otherwise.
func (r CapacityReport) CapacityError(vehicle domain.Vehicle, day time.Time) error {
	if r.Fits {
		return nil
	}
	return &domain.CapacityExceededError{
		VehicleID: vehicle.VehicleID,
		Day:       domain.Day(day),
		Used:      r.Used,
		Capacity:  vehicle.Capacity,
	}
}
