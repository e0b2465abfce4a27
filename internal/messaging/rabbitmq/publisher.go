package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishChannel is the part of *amqp.Channel the publisher needs.
type PublishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher relays work-order events to a durable topic exchange, routed by event type.
type Publisher struct {
	ch       PublishChannel
	exchange string
	logger   *slog.Logger
}

func NewPublisher(ch PublishChannel, exchange string, logger *slog.Logger) (*Publisher, error) {
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

func declareExchange(ch PublishChannel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Publish is an events.Handler.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	env, err := EnvelopeFrom(e)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, env.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         env.Type,
		Body:         body,
	})
	if err != nil {
		p.logger.Error("failed to relay event", "event_type", env.Type, "event_id", env.ID, "error", err)
		return internal.NewTransportError("failed to publish "+env.Type, err)
	}

	p.logger.Debug("event relayed", "event_type", env.Type, "event_id", env.ID, "work_order_id", env.WorkOrderID)
	return nil
}
