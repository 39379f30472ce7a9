package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"production_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel shared by all instances.
const DefaultChannel = "production:realtime"

type relayMessage struct {
	Target   Target   `json:"target"`
	Envelope Envelope `json:"envelope"`
}

// Relay fans envelopes out across instances through Redis pub/sub. Every
// instance, the publisher included, delivers what it receives to its own hub.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *logger.Logger
}

// NewRelay creates a relay on channel.
func NewRelay(client *redis.Client, channel string, hub *Hub, log *logger.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{client: client, channel: channel, hub: hub, log: log}
}

// Deliver publishes to every instance.
func (r *Relay) Deliver(ctx context.Context, t Target, env Envelope) error {
	data, err := json.Marshal(relayMessage{Target: t, Envelope: env})
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish relay message: %w", err)
	}
	return nil
}

// Start subscribes and returns once the subscription is confirmed. Messages
// are forwarded to the hub until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.forward(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

func (r *Relay) forward(ctx context.Context, payload string) {
	var m relayMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		r.log.Warn("discarding malformed relay message", "error", err)
		return
	}
	if err := r.hub.Deliver(ctx, m.Target, m.Envelope); err != nil {
		r.log.Warn("relay delivery failed", "error", err)
	}
}

var _ Transport = (*Relay)(nil)
