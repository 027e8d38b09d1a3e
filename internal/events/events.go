// Package events fans candidate activity out to connected reviewers over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel reviewers' websocket connections subscribe to.
const Channel = "recruit:events"

const (
	TypeCandidateCreated = "candidate_created"
	TypeStatusChanged    = "status_changed"
)

// Event is the JSON message forwarded to websocket clients.
type Event struct {
	Type        string    `json:"type"`
	CandidateID string    `json:"candidate_id"`
	CampaignID  string    `json:"campaign_id"`
	Status      string    `json:"status"`
	Name        string    `json:"name,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher announces candidate activity.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes events on Channel.
type RedisPublisher struct {
	client redisPublisher
}

func NewRedisPublisher(client redisPublisher) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
