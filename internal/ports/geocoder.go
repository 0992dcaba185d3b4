package ports

import (
	"context"

	"fleet-scheduling-service/internal/domain"
)

// Contract for resolving a free-text address into coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (domain.Coordinates, error)
}

// Persistent address -> coordinates cache used in front of a Geocoder.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
