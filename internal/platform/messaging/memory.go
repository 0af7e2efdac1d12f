package messaging

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryBus is an in-process Transport. Send delivers synchronously to every
// handler subscribed to the topic, in the caller's goroutine, so a relay pass
// completes the downstream step before its outcome is recorded.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
	logger   *slog.Logger
}

func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Send implements Sender. A handler error is returned to the caller so the
// publish is reported as failed, mirroring a broker that refused the message.
func (b *MemoryBus) Send(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrTransportClosed
	}
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	b.logger.Debug("delivering message", slog.String("topic", topic), slog.String("key", key), slog.Int("handler_count", len(handlers)))

	for _, h := range handlers {
		if err := h(ctx, key, payload); err != nil {
			b.logger.Error("message handler failed", slog.String("topic", topic), slog.String("key", key), slog.Any("error", err))
			return err
		}
	}
	return nil
}

// Subscribe registers h for topic and returns immediately.
func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], h)
	b.logger.Debug("subscribed to topic", slog.String("topic", topic))
}

// Consume implements Consumer by subscribing and blocking until ctx is done.
func (b *MemoryBus) Consume(ctx context.Context, topic string, h Handler) error {
	b.Subscribe(topic, h)
	<-ctx.Done()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var _ Transport = (*MemoryBus)(nil)
