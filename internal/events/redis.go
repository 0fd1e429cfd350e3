// Package events publishes ingest notifications on Redis pub/sub.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// ChannelRawIngested carries one message per newly stored raw record.
const ChannelRawIngested = "EVENT_RAW_INGESTED"

// RawIngested is the payload of an EVENT_RAW_INGESTED message.
type RawIngested struct {
	Type         string    `json:"type"`
	ID           int64     `json:"id"`
	Source       string    `json:"source"`
	Endpoint     string    `json:"endpoint"`
	ExternalKey  string    `json:"external_key"`
	LastModified time.Time `json:"last_modified"`
}

// RedisPublisher sends events to Redis.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishRawIngested publishes ev on ChannelRawIngested.
func (p *RedisPublisher) PublishRawIngested(ctx context.Context, ev RawIngested) error {
	ev.Type = ChannelRawIngested
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ChannelRawIngested, err)
	}
	if err := p.rdb.Publish(ctx, ChannelRawIngested, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelRawIngested, err)
	}
	return nil
}

// Discard drops every event. Used when no Redis is configured.
type Discard struct{}

func (Discard) PublishRawIngested(context.Context, RawIngested) error { return nil }
