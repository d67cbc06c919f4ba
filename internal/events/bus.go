// Package events publishes job lifecycle events over Redis pub/sub so the
// customer tracking view and driver apps can react in real time.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/umuve/dispatch-engine/internal/config"
)

// Event is the payload pushed to subscribers. Data carries event-specific
// fields (new status, price, ETA) without a fixed schema.
type Event struct {
	Type      string         `json:"type"`
	JobID     uuid.UUID      `json:"job_id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Bus fans events out to per-job and per-driver channels. A nil Bus is a
// valid no-op: deployments without Redis still work, they just lose live
// updates.
type Bus struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewClient connects to Redis. An empty addr returns nil, which disables the
// bus.
func NewClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewBus(client *redis.Client, log zerolog.Logger) *Bus {
	if client == nil {
		return nil
	}
	return &Bus{client: client, log: log}
}

// JobChannel is the pub/sub channel the customer tracking view subscribes to.
func JobChannel(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

// DriverChannel is the pub/sub channel a driver app subscribes to.
func DriverChannel(contractorID uuid.UUID) string {
	return fmt.Sprintf("driver:%s", contractorID)
}

// PublishJobEvent emits an event on the job's channel. Publish failures are
// logged and swallowed: live updates are best-effort and never fail the
// request that triggered them.
func (b *Bus) PublishJobEvent(ctx context.Context, eventType string, jobID uuid.UUID, data map[string]any) {
	if b == nil || b.client == nil {
		return
	}
	b.publish(ctx, JobChannel(jobID), Event{
		Type:      eventType,
		JobID:     jobID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// PublishDriverEvent emits an event on the contractor's channel.
func (b *Bus) PublishDriverEvent(ctx context.Context, eventType string, contractorID, jobID uuid.UUID, data map[string]any) {
	if b == nil || b.client == nil {
		return
	}
	b.publish(ctx, DriverChannel(contractorID), Event{
		Type:      eventType,
		JobID:     jobID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (b *Bus) publish(ctx context.Context, channel string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("channel", channel).Msg("marshal event")
		return
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		b.log.Error().Err(err).
			Str("channel", channel).
			Str("event_type", event.Type).
			Msg("publish event")
	}
}
