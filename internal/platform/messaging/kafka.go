package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrNoBrokers is returned when Kafka is configured without any broker address.
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	// Brokers is a comma separated list of host:port pairs.
	Brokers string
	GroupID string
}

// Kafka implements Transport with segmentio/kafka-go. Writers hash the key to
// pick a partition, so all messages of one saga stay ordered.
type Kafka struct {
	brokers []string
	groupID string
	logger  *slog.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

func NewKafka(cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		brokers: brokers,
		groupID: cfg.GroupID,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}, nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrTransportClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(k.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	k.writers[topic] = w
	return w, nil
}

func (k *Kafka) Send(ctx context.Context, topic, key string, payload []byte) error {
	w, err := k.writer(topic)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload, Time: time.Now().UTC()}); err != nil {
		return fmt.Errorf("kafka write to %s: %w", topic, err)
	}
	return nil
}

// Consume reads topic in the configured consumer group. Offsets are committed
// only after h succeeds; a failed message is retried until it succeeds or
// ctx is cancelled.
func (k *Kafka) Consume(ctx context.Context, topic string, h Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		Topic:    topic,
		GroupID:  k.groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger := k.logger.With(slog.String("topic", topic), slog.String("group_id", k.groupID))
	logger.Info("kafka consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch from %s: %w", topic, err)
		}

		for attempt := 1; ; attempt++ {
			err := h(ctx, string(msg.Key), msg.Value)
			if err == nil {
				break
			}
			logger.Error("message handling failed",
				slog.String("key", string(msg.Key)),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			if !sleep(ctx, retryDelay(attempt)) {
				return nil
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			return fmt.Errorf("kafka commit on %s: %w", topic, err)
		}
	}
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.closed = true
	var errs []error
	for _, w := range k.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func retryDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * 500 * time.Millisecond
	return min(d, 10*time.Second)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ Transport = (*Kafka)(nil)
