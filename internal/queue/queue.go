package queue

import "context"

const (
	// DialQueueName is the single work queue dial-dispatch workers drain.
	DialQueueName = "dial.dispatch"
	// DialDLQName receives rejected dial entries.
	DialDLQName = "dlq.dial.dispatch"

	// queueMaxPriority is the RabbitMQ x-max-priority value for the dial queue.
	queueMaxPriority int32 = 9
)

// Publisher publishes dial queue entries to the broker.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DialMessage) error
	Close() error
}

// MessageHandler handles a consumed dial queue entry.
type MessageHandler func(ctx context.Context, msg DialMessage) error

// Consumer consumes dial queue entries from the broker.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// PriorityValue maps a generation draw index (lower = sooner) to a RabbitMQ
// message priority (higher = sooner).
func PriorityValue(drawIndex int) uint8 {
	if drawIndex < 0 {
		drawIndex = 0
	}
	value := int(queueMaxPriority) - drawIndex
	if value < 0 {
		value = 0
	}
	return uint8(value)
}
