package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// defaultMaxEntryAge bounds how long a queued dial recommendation stays
// actionable. Queue entries are recomputed projections; one that sat in the
// broker past this age is dropped, the generator will re-emit the contact if
// it is still eligible.
const defaultMaxEntryAge = 30 * time.Minute

type RabbitMQConsumer struct {
	client      *RabbitMQ
	prefetch    int
	maxEntryAge time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:      client,
		prefetch:    prefetch,
		maxEntryAge: defaultMaxEntryAge,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMaxEntryAge overrides the staleness cutoff for queued entries. Zero or
// negative disables the check.
func (c *RabbitMQConsumer) SetMaxEntryAge(age time.Duration) {
	if c == nil {
		return
	}
	c.maxEntryAge = age
}

func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler MessageHandler) error {
	var msg DialMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Warn("rejecting message: invalid JSON",
			zap.Error(err),
			zap.String("routingKey", d.RoutingKey),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid message: %w", rejectErr)
		}
		return nil
	}

	if err := msg.Validate(); err != nil {
		c.logger.Warn("rejecting message: validation failed",
			zap.Error(err),
			zap.String("contactId", msg.ContactID),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid payload: %w", rejectErr)
		}
		return nil
	}

	if c.stale(msg) {
		c.logger.Info("dropping stale queue entry",
			zap.String("contactId", msg.ContactID),
			zap.Time("queuedAt", msg.QueuedAt),
		)
		if ackErr := d.Ack(false); ackErr != nil {
			return fmt.Errorf("failed to ack stale entry: %w", ackErr)
		}
		return nil
	}

	if err := handler(ctx, msg); err != nil {
		// A message that already failed once gets dropped instead of
		// cycling through the queue forever.
		if d.Redelivered {
			c.logger.Error("dropping entry after repeated handler failure",
				zap.Error(err),
				zap.String("contactId", msg.ContactID),
			)
			if rejectErr := d.Reject(false); rejectErr != nil {
				return fmt.Errorf("failed to reject poisoned message: %w", rejectErr)
			}
			return nil
		}
		if nackErr := d.Nack(false, true); nackErr != nil {
			return fmt.Errorf("handler failed and nack failed: %w", nackErr)
		}
		return nil
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack delivery: %w", err)
	}

	return nil
}

func (c *RabbitMQConsumer) stale(msg DialMessage) bool {
	if c.maxEntryAge <= 0 || msg.QueuedAt.IsZero() {
		return false
	}
	return c.now().Sub(msg.QueuedAt) > c.maxEntryAge
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
