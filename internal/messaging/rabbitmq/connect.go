package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is a broker connection with one channel.
type Connection struct {
	Conn *amqp.Connection
	Chan *amqp.Channel
}

// Connect dials url, retrying with exponential backoff up to attempts times.
func Connect(ctx context.Context, url string, attempts int, logger *slog.Logger) (*Connection, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	backoff := time.Second
	for i := 1; i <= attempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to open channel: %w", chErr)
			}
			logger.Info("connected to rabbitmq", "attempt", i)
			return &Connection{Conn: conn, Chan: ch}, nil
		}

		logger.Warn("rabbitmq connect attempt failed", "attempt", i, "error", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", attempts, err)
}

func (c *Connection) Close() error {
	if c.Chan != nil {
		if err := c.Chan.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
