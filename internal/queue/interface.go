package queue

import (
	"context"
)

// MessageInterface is what workers see of a delivered message. Keeping it
// an interface lets worker tests run without an AMQP channel.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the producer and consumer surface of the job queue.
type JobQueue interface {
	// Enqueue adds a job to the queue. Jobs with a future NotBefore are
	// routed through the delayed exchange.
	Enqueue(ctx context.Context, job *Job) error

	// Consume returns a channel of messages delivered as they arrive.
	// The caller must Ack or Nack every message; prefetchCount bounds
	// how many unacknowledged messages the consumer holds. The channel
	// closes when ctx is cancelled or the connection drops.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}
