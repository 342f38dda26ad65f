package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the queue reconcile jobs are consumed from
	DefaultQueueName = "reconcile_jobs"
	// DefaultDLQName holds jobs that exhausted their retries
	DefaultDLQName = "reconcile_jobs_dlq"
	// DefaultExchangeName is the direct exchange for immediate jobs
	DefaultExchangeName = "taskquest_jobs"
	// DefaultDelayedExchangeName is used for scheduled jobs and requires
	// the rabbitmq_delayed_message_exchange plugin
	DefaultDelayedExchangeName = "taskquest_jobs_delayed"
)

// jobsRoutingKey routes to the main queue; dlqRoutingKey to the DLQ.
const (
	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// RabbitMQQueue implements JobQueue on top of RabbitMQ. Scheduled jobs
// (NotBefore set) go through the delayed exchange when the plugin is
// present; otherwise they are published immediately and the consumer
// requeues them until the window opens.
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	logger              *zap.Logger
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
	delayedAvailable    bool
}

// NewRabbitMQQueue connects to RabbitMQ and declares the job topology.
// A nil logger disables logging.
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		logger:              logger,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
	}

	if err := q.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return q, nil
}

// declareTopology declares the exchanges, the DLQ and the main queue.
func (q *RabbitMQQueue) declareTopology() error {
	q.delayedAvailable = q.declareDelayedExchange() == nil

	err := q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(q.dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Rejected deliveries from the main queue route to the DLQ.
	mainArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, mainArgs); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	if q.delayedAvailable {
		if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.delayedExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to delayed exchange: %w", err)
		}
	}

	return nil
}

// declareDelayedExchange attempts to declare the plugin-backed delayed
// exchange. A failed declare closes the channel, so it is reopened
// before the caller continues with the rest of the topology.
func (q *RabbitMQQueue) declareDelayedExchange() error {
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err == nil {
		return nil
	}

	q.logger.Warn("delayed_exchange_unavailable", zap.Error(err))

	if q.channel.IsClosed() {
		newCh, openErr := q.conn.Channel()
		if openErr != nil {
			return fmt.Errorf("failed to reopen channel: %w", openErr)
		}
		q.channel = newCh
	}
	return err
}

// Enqueue publishes a job. NotAfter becomes a per-message TTL; NotBefore
// becomes an x-delay header when the delayed exchange is available.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
	}

	if job.NotAfter != nil {
		if ttl := time.Until(*job.NotAfter); ttl > 0 {
			publishing.Expiration = fmt.Sprintf("%d", ttl.Milliseconds())
		}
	}

	exchange := q.exchangeName
	if job.NotBefore != nil && q.delayedAvailable {
		if delay := time.Until(*job.NotBefore); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": int(delay.Milliseconds())}
		}
	}

	if err := q.channel.PublishWithContext(ctx, exchange, jobsRoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume opens a dedicated consumer channel and streams messages until
// the context is cancelled. prefetchCount bounds unacknowledged
// deliveries per consumer; 1 gives fair dispatch across workers.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag auto-generated
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go q.pump(ctx, consumeCh, deliveries, msgChan, errChan)

	return msgChan, errChan, nil
}

// pump translates AMQP deliveries into Messages. Deliveries carrying an
// expiration are already stale and are dead-lettered; jobs whose window
// has not opened are requeued.
func (q *RabbitMQQueue) pump(ctx context.Context, ch *amqp.Channel, deliveries <-chan amqp.Delivery, msgChan chan<- *Message, errChan chan<- error) {
	defer close(msgChan)
	defer close(errChan)
	defer func() { _ = ch.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				errChan <- fmt.Errorf("delivery channel closed")
				return
			}

			if delivery.Expiration != "" {
				_ = delivery.Nack(false, false)
				continue
			}

			var job Job
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				_ = delivery.Nack(false, false)
				errChan <- fmt.Errorf("failed to unmarshal job: %w", err)
				continue
			}

			if !job.ShouldProcess() {
				_ = delivery.Nack(false, true)
				continue
			}

			msg := &Message{
				Job:         &job,
				DeliveryTag: delivery.DeliveryTag,
				Channel:     ch,
			}

			select {
			case <-ctx.Done():
				_ = delivery.Nack(false, true)
				return
			case msgChan <- msg:
			}
		}
	}
}

// Close closes the channel and the connection.
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
