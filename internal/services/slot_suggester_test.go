package services

import (
	"errors"
	"testing"
	"time"

	"fleet-scheduling-service/internal/domain"
)

func slotVehicle() domain.Vehicle {
	end := paris
	return domain.Vehicle{VehicleID: "v1", Capacity: 100, Start: paris, End: &end}
}

func TestSuggestSlotsSkipsWeekendsAndSorts(t *testing.T) {
	p := testPolicy()
	o := order("new", north(paris, 100), 10)

	out, err := SuggestSlots(p, o, nil, slotVehicle(), monday(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 weekday suggestions, got %d", len(out))
	}
	for i, s := range out {
		if domain.IsWeekend(s.Date) {
			t.Fatalf("weekend day %s suggested", s.Date)
		}
		if i > 0 && !s.Date.After(out[i-1].Date) {
			t.Fatalf("suggestions not sorted at %d", i)
		}
		if s.Mode != domain.SlotSolo {
			t.Fatalf("expected solo trip without existing tours, got %s", s.Mode)
		}
		if s.TourMinutes != 245 || s.Class != domain.SlotGood {
			t.Fatalf("expected 245 minute GOOD trip, got %d %s", s.TourMinutes, s.Class)
		}
	}
}

func TestSuggestSlotsClassification(t *testing.T) {
	p := testPolicy()
	cases := []struct {
		km   float64
		want domain.SlotClass
	}{
		{100, domain.SlotGood},       // 245 min
		{330, domain.SlotAcceptable}, // 705 min against a 720 min window
		{400, domain.SlotCostly},     // 845 min, still listed
	}

	for _, tc := range cases {
		o := order("new", north(paris, tc.km), 10)
		out, err := SuggestSlots(p, o, nil, slotVehicle(), monday(), 1)
		if err != nil {
			t.Fatalf("%.0f km: unexpected error: %v", tc.km, err)
		}
		if len(out) != 1 {
			t.Fatalf("%.0f km: expected one suggestion, got %d", tc.km, len(out))
		}
		if out[0].Class != tc.want {
			t.Fatalf("%.0f km: expected %s, got %s (%d min)", tc.km, tc.want, out[0].Class, out[0].TourMinutes)
		}
	}
}

func TestSuggestSlotsInsertsIntoNearbyTour(t *testing.T) {
	p := testPolicy()
	tuesday := monday().AddDate(0, 0, 1)

	existing := order("booked", north(paris, 100), 10)
	existing.Status = domain.StatusScheduled
	existing.VehicleID = "v1"
	existing.ScheduledDate = &tuesday

	o := order("new", north(paris, 105), 10)
	out, err := SuggestSlots(p, o, []domain.Order{existing}, slotVehicle(), monday(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(out))
	}

	mon, tue := out[0], out[1]
	if mon.Mode != domain.SlotSolo {
		t.Fatalf("expected solo trip on monday, got %s", mon.Mode)
	}
	if tue.Mode != domain.SlotInsert {
		t.Fatalf("expected insert on tuesday, got %s", tue.Mode)
	}
	// 100 out, 45 service, 5 across, 45 service, 105 back.
	if tue.TourMinutes != 300 || tue.DurationMinutes != 55 {
		t.Fatalf("expected tour 300 min and +55 min, got %d and %d", tue.TourMinutes, tue.DurationMinutes)
	}
	if tue.DistanceKm < 9.9 || tue.DistanceKm > 10.1 {
		t.Fatalf("expected ~10 km detour, got %.2f", tue.DistanceKm)
	}
}

func TestSuggestSlotsInsertKeepsOneReturnPolicy(t *testing.T) {
	p := testPolicy()
	// The booked stop alone lies north of the line; with the new order the
	// centroid drops south of it and the tour would end at the last client.
	p.SleepLineLat = north(paris, 25).Lat
	day := monday()

	existing := order("booked", north(paris, 30), 10)
	existing.Status = domain.StatusScheduled
	existing.VehicleID = "v1"
	existing.ScheduledDate = &day

	out, err := SuggestSlots(p, order("new", north(paris, 10), 10), []domain.Order{existing}, slotVehicle(), day, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Mode != domain.SlotInsert {
		t.Fatalf("expected one insert suggestion, got %+v", out)
	}

	s := out[0]
	// 10 out, 45 service, 20 on, 45 service, no return; the stop is on the way.
	if s.TourMinutes != 120 || s.DurationMinutes != 45 {
		t.Fatalf("expected tour 120 min and +45 min, got %d and %d", s.TourMinutes, s.DurationMinutes)
	}
	if s.DistanceKm < -0.1 || s.DistanceKm > 0.1 {
		t.Fatalf("expected no extra distance, got %.2f", s.DistanceKm)
	}
}

func TestSuggestSlotsIgnoresOtherVehicles(t *testing.T) {
	p := testPolicy()
	existing := order("booked", north(paris, 100), 10)
	existing.VehicleID = "v2"
	day := monday()
	existing.ScheduledDate = &day

	out, err := SuggestSlots(p, order("new", north(paris, 101), 1), []domain.Order{existing}, slotVehicle(), monday(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Mode != domain.SlotSolo {
		t.Fatalf("expected another vehicle's tour to be ignored")
	}
}

func TestSuggestSlotsPinnedOrder(t *testing.T) {
	p := testPolicy()
	o := order("new", north(paris, 100), 10)
	wed := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	o.PinnedDate = &wed

	out, err := SuggestSlots(p, o, nil, slotVehicle(), monday(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || !domain.SameDay(out[0].Date, wed) {
		t.Fatalf("expected only the pinned day, got %v", out)
	}
}

func TestSuggestSlotsUnroutable(t *testing.T) {
	_, err := SuggestSlots(testPolicy(), domain.Order{OrderID: "x"}, nil, slotVehicle(), monday(), 5)
	if !errors.Is(err, domain.ErrUnroutable) {
		t.Fatalf("expected ErrUnroutable, got %v", err)
	}
}

func TestSuggestSlotsDefaultHorizon(t *testing.T) {
	p := testPolicy()
	p.HorizonDays = 14

	out, err := SuggestSlots(p, order("new", north(paris, 10), 1), nil, slotVehicle(), monday(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 10 {
		t.Fatalf("expected 10 weekdays in two weeks, got %d", len(out))
	}
}
