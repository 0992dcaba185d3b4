package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusScheduled OrderStatus = "scheduled"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Represents a single delivery/installation request.
// Orders are created by intake outside this service; the engine only reads
// them and produces assignments. A nil Location means the order could not
// be geocoded yet and must be reported as unroutable.
type Order struct {
	OrderID       string
	Address       string
	Location      *Coordinates
	Size          int
	PinnedDate    *time.Time
	VehicleID     string
	Zone          string
	Status        OrderStatus
	ScheduledDate *time.Time
	ArrivalAt     *time.Time
}

func (o Order) Routable() bool { return o.Location != nil }

// PinnedTo reports whether the order is locked to the calendar day of day.
func (o Order) PinnedTo(day time.Time) bool {
	return o.PinnedDate != nil && SameDay(*o.PinnedDate, day)
}

// ScheduledOn reports whether the order already sits in a tour on day.
func (o Order) ScheduledOn(day time.Time) bool {
	return o.ScheduledDate != nil && SameDay(*o.ScheduledDate, day)
}

// Assignment is the engine output persisted back to the record store.
// The three fields are always written together.
type Assignment struct {
	OrderID       string
	VehicleID     string
	ScheduledDate time.Time
	ArrivalAt     time.Time
}

// UnassignedOrder lists an order the planner could not place, with why.
type UnassignedOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

const (
	ReasonUnroutable     = "unroutable"
	ReasonSolver         = "solver could not place order"
	ReasonNoCapacity     = "no vehicle capacity left"
	ReasonPastDeadline   = "does not fit before deadline"
	ReasonPinnedOutside  = "pinned to a day outside the planned range"
	ReasonNoSectorMatch  = "no vehicle serves the order zone"
	ReasonPinnedDeferred = "pinned day is full"
)

// Day truncates t to local midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ClockOn returns the wall-clock time hour:minute on the calendar day of
// day, in day's location. Midnight plus a duration would be off by an hour
// on daylight saving changes. Hour 24 is midnight of the next day.
func ClockOn(day time.Time, hour, minute int) time.Time {
	return ClockSecondsOn(day, hour*3600+minute*60)
}

// ClockSecondsOn is ClockOn for a wall-clock offset in seconds, the time
// base of solver time windows.
func ClockSecondsOn(day time.Time, sec int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, sec, 0, day.Location())
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
