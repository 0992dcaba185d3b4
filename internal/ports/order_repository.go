package ports

import (
	"context"
	"time"

	"fleet-scheduling-service/internal/domain"
)

// OrderFilter narrows List. Zero values mean "no constraint".
type OrderFilter struct {
	IDs      []string
	Zone     string
	Statuses []domain.OrderStatus
	// Scheduled orders whose date falls in [From, To).
	From *time.Time
	To   *time.Time
}

// OrderUpdate holds the fields a single Update may change; nil fields are left alone.
type OrderUpdate struct {
	Location *domain.Coordinates
	Status   *domain.OrderStatus
}

// Port: the external record store holding orders.
type OrderRepository interface {
	// Return orders matching the filter, ordered by id.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// Update a single order. Returns domain.ErrNotFound for unknown ids.
	Update(ctx context.Context, orderID string, upd OrderUpdate) error
	// Persist a planning result. Either every assignment is written or none is.
	BatchUpsert(ctx context.Context, assignments []domain.Assignment) error
}
