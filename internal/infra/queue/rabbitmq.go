package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sitescan/sitescan/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrPublisherClosed = errors.New("event publisher is closed")

const maxRedialBackoff = 30 * time.Second

// tableCarrier lets trace context ride in amqp message headers.
type tableCarrier struct {
	table amqp.Table
}

var _ propagation.TextMapCarrier = tableCarrier{}

func (c tableCarrier) Get(key string) string {
	v, ok := c.table[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (c tableCarrier) Set(key, value string) { c.table[key] = value }

func (c tableCarrier) Keys() []string {
	out := make([]string, 0, len(c.table))
	for k := range c.table {
		out = append(out, k)
	}
	return out
}

type DialFunc func() (*amqp.Connection, error)

// Publisher sends entity events to the fanout exchange. If the broker drops
// the connection it redials in the background; publishes in the meantime fail
// fast and the caller's cache invalidation still happened locally.
type Publisher struct {
	exchange string
	tracer   trace.Tracer
	log      *zap.Logger
	dial     DialFunc

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewPublisher(conn *amqp.Connection, log *zap.Logger, cfg *config.Config, dial DialFunc) (*Publisher, error) {
	ch, err := openChannel(conn, cfg.MQ.Exchange, 0)
	if err != nil {
		return nil, err
	}
	p := &Publisher{
		exchange: cfg.MQ.Exchange,
		tracer:   otel.Tracer(cfg.App.Name),
		log:      log.With(zap.String("exchange", cfg.MQ.Exchange)),
		dial:     dial,
		conn:     conn,
		ch:       ch,
	}
	go p.supervise(conn)
	return p, nil
}

// openChannel opens a channel with the given prefetch and makes sure the
// events exchange exists.
func openChannel(conn *amqp.Connection, exchange string, prefetch int) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return ch, nil
}

func (p *Publisher) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// supervise waits for conn to drop, then redials until it has a working
// channel again or the publisher is closed.
func (p *Publisher) supervise(conn *amqp.Connection) {
	for {
		amqpErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if p.isClosed() {
			return
		}
		p.log.Warn("broker connection lost", zap.Any("reason", amqpErr))

		p.mu.Lock()
		p.ch = nil
		p.mu.Unlock()

		next, ok := p.redial()
		if !ok {
			return
		}
		conn = next
	}
}

func (p *Publisher) redial() (*amqp.Connection, bool) {
	backoff := time.Second
	for attempt := 1; ; attempt++ {
		if p.isClosed() {
			return nil, false
		}
		conn, err := p.dial()
		if err == nil {
			var ch *amqp.Channel
			if ch, err = openChannel(conn, p.exchange, 0); err == nil {
				p.mu.Lock()
				if p.closed {
					p.mu.Unlock()
					ch.Close()
					conn.Close()
					return nil, false
				}
				p.conn, p.ch = conn, ch
				p.mu.Unlock()
				p.log.Info("broker connection restored", zap.Int("attempt", attempt))
				return conn, true
			}
			conn.Close()
		}
		p.log.Error("redial broker", zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))
		time.Sleep(backoff)
		backoff = min(backoff*2, maxRedialBackoff)
	}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.ch == nil {
		return nil, errors.New("broker channel unavailable")
	}
	return p.ch, nil
}

// Close stops reconnection and closes the channel and connection currently held.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// publish sends one persistent JSON message with the caller's trace context
// in its headers.
func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, span := p.tracer.Start(ctx, "events.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", p.exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
			attribute.Int("messaging.message.body.size", len(body)),
		))
	defer span.End()

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier{table: headers})

	ch, err := p.channel()
	if err != nil {
		span.RecordError(err)
		return err
	}
	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Consumer reads entity events from a queue bound to the events exchange.
type Consumer struct {
	ch     *amqp.Channel
	queue  string
	tracer trace.Tracer
	log    *zap.Logger
}

// NewConsumer binds a queue to the events exchange. An empty queue name gets
// a server named exclusive queue, so every replica sees every event.
func NewConsumer(conn *amqp.Connection, queueName string, prefetch int, log *zap.Logger, cfg *config.Config) (*Consumer, error) {
	if prefetch <= 0 {
		prefetch = 10
	}
	ch, err := openChannel(conn, cfg.MQ.Exchange, prefetch)
	if err != nil {
		return nil, err
	}

	durable, exclusive := queueName != "", queueName == ""
	q, err := ch.QueueDeclare(queueName, durable, exclusive, exclusive, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", cfg.MQ.Exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	return &Consumer{
		ch:     ch,
		queue:  q.Name,
		tracer: otel.Tracer(cfg.App.Name),
		log:    log.With(zap.String("queue", q.Name)),
	}, nil
}

func (c *Consumer) Close() error { return c.ch.Close() }

// Handle consumes until ctx is done. A failed message is requeued once and
// dropped on its second failure.
func (c *Consumer) Handle(ctx context.Context, handler func(context.Context, []byte) error) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("event delivery channel closed")
			}
			c.deliver(ctx, m, handler)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, m amqp.Delivery, handler func(context.Context, []byte) error) {
	if m.Headers != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, tableCarrier{table: m.Headers})
	}
	ctx, span := c.tracer.Start(ctx, "events.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", c.queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", m.RoutingKey),
			attribute.Bool("messaging.rabbitmq.redelivered", m.Redelivered),
		))
	defer span.End()

	if err := handler(ctx, m.Body); err != nil {
		span.RecordError(err)
		c.log.Error("handle event", zap.String("routing_key", m.RoutingKey), zap.Bool("redelivered", m.Redelivered), zap.Error(err))
		_ = m.Nack(false, !m.Redelivered)
		return
	}
	_ = m.Ack(false)
}
