package ports

import (
	"context"
	"time"
)

// PlanEvent tells subscribers that assignments changed and views should refresh.
type PlanEvent struct {
	Type     string    `json:"type"`
	RunID    string    `json:"run_id"`
	Zone     string    `json:"zone,omitempty"`
	OrderIDs []string  `json:"order_ids"`
	At       time.Time `json:"at"`
}

const EventPlanApplied = "plan.applied"

// Contract for the realtime change notification channel.
type Notifier interface {
	Publish(ctx context.Context, evt PlanEvent) error
}
