package domain

import (
	"errors"
	"fmt"
	"time"
)

// Preset is a named deadline used to offer alternative day lengths.
type Preset struct {
	Name         string `yaml:"name" json:"name"`
	DeadlineHour int    `yaml:"deadline_hour" json:"deadline_hour"`
}

// Policy holds the business constants of the scheduling engine.
// They were tuned empirically and are deliberately configuration.
type Policy struct {
	AvgSpeedKmh       float64  `yaml:"avg_speed_kmh"`
	ServiceMinutes    int      `yaml:"service_minutes"`
	StartHour         int      `yaml:"start_hour"`
	StartMinute       int      `yaml:"start_minute"`
	DeadlineHour      int      `yaml:"deadline_hour"`
	SleepLineLat      float64  `yaml:"sleep_line_lat"`
	GoodMarginMinutes int      `yaml:"good_margin_minutes"`
	ClusterRadiusKm   float64  `yaml:"cluster_radius_km"`
	HorizonDays       int      `yaml:"horizon_days"`
	SolverProfile     string   `yaml:"solver_profile"`
	Presets           []Preset `yaml:"presets"`
}

func DefaultPolicy() Policy {
	return Policy{
		AvgSpeedKmh:       60,
		ServiceMinutes:    45,
		StartHour:         8,
		StartMinute:       0,
		DeadlineHour:      20,
		SleepLineLat:      46.0,
		GoodMarginMinutes: 60,
		ClusterRadiusKm:   30,
		HorizonDays:       120,
		SolverProfile:     "driving-car",
		Presets: []Preset{
			{Name: "maximum", DeadlineHour: 22},
			{Name: "comfortable", DeadlineHour: 20},
			{Name: "morning-only", DeadlineHour: 13},
		},
	}
}

// WindowMinutes is the operating window from start to deadline.
func (p Policy) WindowMinutes() int {
	return p.DeadlineHour*60 - (p.StartHour*60 + p.StartMinute)
}

// StartOn returns the workday start on the calendar day of day.
func (p Policy) StartOn(day time.Time) time.Time {
	return ClockOn(day, p.StartHour, p.StartMinute)
}

// DeadlineOn returns the deadline on the calendar day of day.
func (p Policy) DeadlineOn(day time.Time) time.Time {
	return ClockOn(day, p.DeadlineHour, 0)
}

func (p Policy) Validate() error {
	if p.AvgSpeedKmh <= 0 {
		return errors.New("policy: avg_speed_kmh must be positive")
	}
	if p.ServiceMinutes < 0 {
		return errors.New("policy: service_minutes must not be negative")
	}
	if p.StartHour < 0 || p.StartHour > 23 || p.StartMinute < 0 || p.StartMinute > 59 {
		return fmt.Errorf("policy: invalid start %02d:%02d", p.StartHour, p.StartMinute)
	}
	if p.DeadlineHour < 1 || p.DeadlineHour > 24 {
		return fmt.Errorf("policy: invalid deadline_hour %d", p.DeadlineHour)
	}
	if p.WindowMinutes() <= 0 {
		return errors.New("policy: deadline must be after start")
	}
	if p.HorizonDays <= 0 {
		return errors.New("policy: horizon_days must be positive")
	}
	for _, pr := range p.Presets {
		if pr.Name == "" || pr.DeadlineHour < 1 || pr.DeadlineHour > 24 {
			return fmt.Errorf("policy: invalid preset %+v", pr)
		}
	}
	return nil
}
