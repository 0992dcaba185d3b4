package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnroutable        = errors.New("order has no coordinates")
	ErrCapacityExceeded  = errors.New("vehicle capacity exceeded")
	ErrSolverRejected    = errors.New("solver rejected request")
	ErrTooManyVehicles   = fmt.Errorf("%w: too many vehicles", ErrSolverRejected)
	ErrSolverUnavailable = errors.New("solver unavailable")
	ErrGeocodingFailed   = errors.New("geocoding failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrNotFound          = errors.New("not found")
)

// CapacityExceededError reports the exact overflow of a tour.
type CapacityExceededError struct {
	VehicleID string
	Day       time.Time
	Used      int
	Capacity  int
}

func (e *CapacityExceededError) Overflow() int { return e.Used - e.Capacity }

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf(
		"vehicle %s on %s: load %d exceeds capacity %d by %d",
		e.VehicleID, e.Day.Format(time.DateOnly), e.Used, e.Capacity, e.Overflow(),
	)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// PersistenceError lists every order left unsaved by an aborted batch write.
type PersistenceError struct {
	OrderIDs []string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("batch write aborted, %d orders not saved (%s): %v",
		len(e.OrderIDs), strings.Join(e.OrderIDs, ", "), e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistenceFailed, e.Err} }

// GeocodingError carries the order whose address could not be resolved.
type GeocodingError struct {
	OrderID string
	Address string
	Err     error
}

func (e *GeocodingError) Error() string {
	return fmt.Sprintf("geocode order %s (%q): %v", e.OrderID, e.Address, e.Err)
}

func (e *GeocodingError) Unwrap() []error { return []error{ErrGeocodingFailed, e.Err} }
