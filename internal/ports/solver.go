package ports

import (
	"context"

	"fleet-scheduling-service/internal/domain"
)

// Contract for an external route-optimization solver.
// Implementations return an error wrapping domain.ErrTooManyVehicles when
// the request is refused for its vehicle count, domain.ErrSolverRejected
// for other refusals and domain.ErrSolverUnavailable when the solver
// cannot be reached.
type Solver interface {
	Solve(ctx context.Context, req domain.SolverRequest) (domain.SolverResponse, error)
}
