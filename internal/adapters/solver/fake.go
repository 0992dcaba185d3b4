package solver

import (
	"context"
	"sync"

	"fleet-scheduling-service/internal/domain"
)

// Step is one scripted answer of a Fake solver.
type Step struct {
	Response domain.SolverResponse
	Err      error
}

// Fake replays scripted answers in order and records every request. Once
// the script runs out the last step repeats. Used by tests and local runs
// without a solver.
type Fake struct {
	mu       sync.Mutex
	steps    []Step
	requests []domain.SolverRequest
}

func NewFake(steps ...Step) *Fake {
	return &Fake{steps: steps}
}

func (f *Fake) Solve(_ context.Context, req domain.SolverRequest) (domain.SolverResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.steps) == 0 {
		return domain.SolverResponse{}, nil
	}

	i := min(len(f.requests), len(f.steps)) - 1
	s := f.steps[i]
	return s.Response, s.Err
}

func (f *Fake) Requests() []domain.SolverRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SolverRequest, len(f.requests))
	copy(out, f.requests)
	return out
}
