package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/config"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

const (
	StageQueueName = "operashorts_stage_tasks"
	ExchangeName   = "operashorts"
)

// TaskHandler executes one stage task
type TaskHandler func(ctx context.Context, task *models.StageTask) error

// Queue carries stage tasks from the API to workers over RabbitMQ
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logging.Logger

	// done closes when the consumer has stopped and its handlers returned
	done <-chan struct{}
}

// New creates a new queue client and declares the stage and dead letter topology
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, logger: logger}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	if err := q.SetupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		StageQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		StageQueueName,
		StageQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Dispatch publishes a stage task for a worker to pick up
func (q *Queue) Dispatch(ctx context.Context, task *models.StageTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		StageQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    task.ID,
			Type:         task.Stage,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	return nil
}

// ConsumeTasks starts consuming stage tasks. prefetch bounds how many run at once on this worker.
func (q *Queue) ConsumeTasks(ctx context.Context, prefetch int, handler TaskHandler) error {
	if prefetch < 1 {
		prefetch = 1
	}
	err := q.channel.Qos(
		prefetch, // prefetch count
		0,        // prefetch size
		false,    // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		StageQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.done = q.consume(ctx, msgs, prefetch, handler, q.PublishToDeadLetterQueue)
	return nil
}

// consume runs deliveries on at most prefetch goroutines until ctx ends or msgs
// closes. The returned channel closes once every started handler has returned.
func (q *Queue) consume(ctx context.Context, msgs <-chan amqp.Delivery, prefetch int, handler TaskHandler, deadLetter deadLetterFunc) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		var inFlight sync.WaitGroup
		defer func() {
			inFlight.Wait()
			close(done)
		}()

		sem := make(chan struct{}, prefetch)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					// never started, the broker redelivers it when the channel closes
					return
				}
				inFlight.Add(1)
				go func(msg amqp.Delivery) {
					defer inFlight.Done()
					defer func() { <-sem }()
					q.handleDelivery(context.WithoutCancel(ctx), msg, handler, deadLetter)
				}(msg)
			}
		}
	}()

	return done
}

// Wait blocks until the consumer has stopped and every running task has finished
func (q *Queue) Wait(ctx context.Context) error {
	if q.done == nil {
		return nil
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type deadLetterFunc func(ctx context.Context, body []byte, reason string) error

// handleDelivery acks every message exactly once. Stages are never redelivered:
// a failed stage is recorded on the project, and anything the handler could not
// process goes to the dead letter queue for inspection.
func (q *Queue) handleDelivery(ctx context.Context, msg amqp.Delivery, handler TaskHandler, deadLetter deadLetterFunc) {
	var task models.StageTask
	if err := json.Unmarshal(msg.Body, &task); err != nil || task.ProjectID == "" || task.Stage == "" {
		reason := "undecodable stage task"
		if err != nil {
			reason = fmt.Sprintf("undecodable stage task: %v", err)
		}
		q.logger.Warnf("Dropping message %s: %s", msg.MessageId, reason)
		if dlqErr := deadLetter(ctx, msg.Body, reason); dlqErr != nil {
			q.logger.ErrorWithErr("Failed to dead-letter message", dlqErr)
		}
		msg.Ack(false)
		return
	}

	if err := handler(ctx, &task); err != nil {
		q.logger.WithTaskID(task.ID).WithProjectID(task.ProjectID).ErrorWithErr("Stage task handler failed", err)
		if dlqErr := deadLetter(ctx, msg.Body, err.Error()); dlqErr != nil {
			q.logger.ErrorWithErr("Failed to dead-letter task", dlqErr)
		}
	}
	msg.Ack(false)
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(StageQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
