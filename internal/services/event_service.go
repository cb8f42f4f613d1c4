package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/vikasavnish/stockwatch/internal/models"
)

// EventPublisher announces application events to other processes.
type EventPublisher interface {
	Publish(ctx context.Context, name string, data interface{}) error
}

type redisEventPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewEventPublisher publishes events on the redis channel "events:<name>".
// With a nil client events are dropped.
func NewEventPublisher(client *redis.Client, logger *slog.Logger) EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisEventPublisher{client: client, logger: logger}
}

// EventChannel returns the redis channel an event name is published on
func EventChannel(name string) string {
	return "events:" + name
}

func (p *redisEventPublisher) Publish(ctx context.Context, name string, data interface{}) error {
	if p.client == nil {
		p.logger.Debug("redis not configured, dropping event", "event", name)
		return nil
	}

	payload, err := json.Marshal(models.Event{Name: name, Data: data})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, EventChannel(name), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}
