package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

const bindingKey = "workorder.#"

type ConsumeChannel interface {
	PublishChannel
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer feeds relayed work-order events from a durable queue into a handler.
type Consumer struct {
	ch     ConsumeChannel
	queue  string
	logger *slog.Logger
}

// NewConsumer declares the exchange and queue and binds every work-order event to it.
func NewConsumer(ch ConsumeChannel, exchange, queue string, logger *slog.Logger) (*Consumer, error) {
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, bindingKey, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}
	return &Consumer{ch: ch, queue: queue, logger: logger}, nil
}

// Run blocks until ctx is done or the delivery channel closes. Malformed messages are
// dropped; handler failures are requeued.
func (c *Consumer) Run(ctx context.Context, handler events.Handler) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}
	c.logger.Info("consuming work order events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, handler events.Handler) {
	env, err := DecodeEnvelope(d.Body)
	if err != nil {
		c.logger.Warn("dropping malformed message", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, env.Event()); err != nil {
		c.logger.Error("event handler failed, requeueing", "event_type", env.Type, "event_id", env.ID, "error", err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}
