package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sitescan/sitescan/internal/config"
	"go.uber.org/zap"
)

type Entity string

const (
	EntityArtifact Entity = "artifact"
	EntityNote     Entity = "note"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// EntityEvent announces a committed mutation and the query cache keys it made stale.
type EntityEvent struct {
	Entity     Entity    `json:"entity"`
	Op         Op        `json:"op"`
	ID         string    `json:"id"`
	Invalidate []string  `json:"invalidate"`
	Origin     string    `json:"origin"`
	At         time.Time `json:"at"`
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, evt EntityEvent) error
}

func (p *Publisher) PublishEvent(ctx context.Context, evt EntityEvent) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	body, err := sonic.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.publish(ctx, string(evt.Entity)+"."+string(evt.Op), body)
}

// NopPublisher is used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, EntityEvent) error { return nil }

// Invalidator drops cache keys named by an event.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// InvalidationHandler applies events from other replicas to the local cache.
// Events that originated here are skipped; the mutation already invalidated.
func InvalidationHandler(origin string, c Invalidator, log *zap.Logger) func(context.Context, []byte) error {
	return func(ctx context.Context, body []byte) error {
		var evt EntityEvent
		if err := sonic.Unmarshal(body, &evt); err != nil {
			log.Warn("drop malformed entity event", zap.Error(err))
			return nil
		}
		if evt.Origin == origin || len(evt.Invalidate) == 0 {
			return nil
		}
		if err := c.Invalidate(ctx, evt.Invalidate...); err != nil {
			return fmt.Errorf("invalidate %v: %w", evt.Invalidate, err)
		}
		log.Debug("applied remote invalidation",
			zap.String("entity", string(evt.Entity)),
			zap.String("op", string(evt.Op)),
			zap.Strings("keys", evt.Invalidate))
		return nil
	}
}

func Dialer(cfg *config.Config) DialFunc {
	return func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.MQ.URL)
	}
}

type originPublisher struct {
	next   EventPublisher
	origin string
}

// WithOrigin stamps every event with the publishing replica's id.
func WithOrigin(p EventPublisher, origin string) EventPublisher {
	return &originPublisher{next: p, origin: origin}
}

func (o *originPublisher) PublishEvent(ctx context.Context, evt EntityEvent) error {
	evt.Origin = o.origin
	return o.next.PublishEvent(ctx, evt)
}
