package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
)

const DefaultChannel = "plans"

// RedisNotifier publishes plan events over Redis Pub/Sub. Every event goes
// to the base channel; zoned events also go to "<channel>:<zone>".
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel, timeout: 2 * time.Second}
}

// NewRedisNotifierFromURL parses a redis:// URL such as REDIS_URL.
func NewRedisNotifierFromURL(url, channel string) (*RedisNotifier, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisNotifier(redis.NewClient(opt), channel), nil
}

func (n *RedisNotifier) Publish(ctx context.Context, evt ports.PlanEvent) (err error) {
	defer obs.Time(ctx, "notify.Publish")(&err)

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode plan event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	for _, ch := range n.channels(evt.Zone) {
		if err := n.rdb.Publish(ctx, ch, data).Err(); err != nil {
			return fmt.Errorf("publish %s to %s: %w", evt.Type, ch, err)
		}
	}
	return nil
}

// Subscribe delivers decoded events for zone (all zones when empty) until
// ctx is cancelled. Undecodable payloads are skipped.
func (n *RedisNotifier) Subscribe(ctx context.Context, zone string) (<-chan ports.PlanEvent, error) {
	name := n.channel
	if zone != "" {
		name = n.channel + ":" + zone
	}

	ps := n.rdb.Subscribe(ctx, name)
	// Wait for the subscription confirmation so no early publish is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}

	out := make(chan ports.PlanEvent, 16)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt ports.PlanEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (n *RedisNotifier) Close() error { return n.rdb.Close() }

func (n *RedisNotifier) channels(zone string) []string {
	if zone == "" {
		return []string{n.channel}
	}
	return []string{n.channel, n.channel + ":" + zone}
}
