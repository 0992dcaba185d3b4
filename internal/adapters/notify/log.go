package notify

import (
	"context"
	"log"
	"strings"

	"fleet-scheduling-service/internal/ports"
)

// LogNotifier writes plan events to the process log. It stands in when no
// Redis is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(ctx context.Context, evt ports.PlanEvent) error {
	log.Printf("event=%s run_id=%s zone=%s orders=%d ids=%s",
		evt.Type, evt.RunID, evt.Zone, len(evt.OrderIDs), strings.Join(evt.OrderIDs, ","))
	return nil
}
