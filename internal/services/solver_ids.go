package services

import "time"

// VehicleSlot is one virtual solver vehicle: a fleet vehicle on one day.
type VehicleSlot struct {
	VehicleIndex int
	VehicleID    string
	Day          time.Time
}

// IDMap translates between internal identifiers and the small integers
// the solver protocol uses. Ids are handed out sequentially from 1.
type IDMap struct {
	jobToOrder map[int]string
	orderToJob map[string]int
	slots      map[int]VehicleSlot
	nextJob    int
	nextSlot   int
}

func NewIDMap() *IDMap {
	return &IDMap{
		jobToOrder: make(map[int]string),
		orderToJob: make(map[string]int),
		slots:      make(map[int]VehicleSlot),
	}
}

// AddOrder returns the solver job id for orderID, allocating one if needed.
func (m *IDMap) AddOrder(orderID string) int {
	if id, ok := m.orderToJob[orderID]; ok {
		return id
	}
	m.nextJob++
	m.jobToOrder[m.nextJob] = orderID
	m.orderToJob[orderID] = m.nextJob
	return m.nextJob
}

func (m *IDMap) OrderID(jobID int) (string, bool) {
	id, ok := m.jobToOrder[jobID]
	return id, ok
}

func (m *IDMap) JobID(orderID string) (int, bool) {
	id, ok := m.orderToJob[orderID]
	return id, ok
}

func (m *IDMap) AddSlot(s VehicleSlot) int {
	m.nextSlot++
	m.slots[m.nextSlot] = s
	return m.nextSlot
}

func (m *IDMap) Slot(vehicleID int) (VehicleSlot, bool) {
	s, ok := m.slots[vehicleID]
	return s, ok
}

func (m *IDMap) Jobs() int { return len(m.jobToOrder) }
