package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSender guards a Sender with a circuit breaker. While the broker keeps
// failing, sends fail fast with gobreaker.ErrOpenState and the relay marks
// the rows FAILED without waiting on network timeouts.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// BreakerConfig tunes the breaker. Zero values take defaults.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

func NewBreakerSender(next Sender, cfg BreakerConfig, logger *slog.Logger) *BreakerSender {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &BreakerSender{next: next, cb: cb}
}

func (b *BreakerSender) Send(ctx context.Context, topic, key string, payload []byte) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Send(ctx, topic, key, payload)
	})
	return err
}

// State reports the breaker state.
func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}
