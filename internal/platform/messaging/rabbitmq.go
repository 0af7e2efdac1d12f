package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// keyHeader carries the saga id, which Kafka would carry as the message key.
const keyHeader = "x-saga-id"

// RabbitMQ implements Transport over durable queues named after topics.
type RabbitMQ struct {
	conn   *amqp.Connection
	logger *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewRabbitMQ(url string, logger *slog.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	return &RabbitMQ{conn: conn, ch: ch, logger: logger}, nil
}

func declare(ch *amqp.Channel, topic string) error {
	_, err := ch.QueueDeclare(
		topic,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq declare %s: %w", topic, err)
	}
	return nil
}

func (r *RabbitMQ) Send(ctx context.Context, topic, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil || r.ch.IsClosed() {
		return ErrTransportClosed
	}
	if err := declare(r.ch, topic); err != nil {
		return err
	}
	err := r.ch.PublishWithContext(ctx,
		"",    // default exchange
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{keyHeader: key},
			Body:         payload,
		})
	if err != nil {
		return fmt.Errorf("rabbitmq publish to %s: %w", topic, err)
	}
	return nil
}

// Consume acks a delivery after h succeeds and requeues it otherwise. Each
// consumer gets its own channel with a prefetch of one.
func (r *RabbitMQ) Consume(ctx context.Context, topic string, h Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, topic); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, topic, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", topic, err)
	}

	logger := r.logger.With(slog.String("topic", topic))
	logger.Info("rabbitmq consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("rabbitmq delivery channel closed")
			}
			key, _ := d.Headers[keyHeader].(string)
			if err := h(ctx, key, d.Body); err != nil {
				logger.Error("message handling failed", slog.String("key", key), slog.Any("error", err))
				_ = d.Nack(false, true)
				continue
			}
			if err := d.Ack(false); err != nil {
				logger.Error("ack failed", slog.String("key", key), slog.Any("error", err))
			}
		}
	}
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.ch != nil {
		errs = append(errs, r.ch.Close())
		r.ch = nil
	}
	errs = append(errs, r.conn.Close())
	return errors.Join(errs...)
}

var _ Transport = (*RabbitMQ)(nil)
