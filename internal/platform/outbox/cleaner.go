package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/metrics"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// CleanerConfig selects which delivered rows a cleaner purges.
type CleanerConfig struct {
	Kind     Kind
	SagaType string
	// SagaStatuses restricts deletion to these saga states; empty means any.
	SagaStatuses []saga.Status
	Interval     time.Duration
}

// Cleaner deletes COMPLETED rows that no idempotency check needs anymore.
type Cleaner struct {
	store   Store
	scope   transaction.Scope
	cfg     CleanerConfig
	logger  *slog.Logger
	metrics *metrics.OutboxMetrics
}

func NewCleaner(store Store, scope transaction.Scope, cfg CleanerConfig, logger *slog.Logger, m *metrics.OutboxMetrics) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.SagaType == "" {
		cfg.SagaType = saga.OrderSagaName
	}
	return &Cleaner{
		store:   store,
		scope:   scope,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "outbox_cleaner"), slog.String("kind", cfg.Kind.String())),
		metrics: m,
	}
}

// Run executes a pass every interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil {
				c.logger.Error("outbox cleanup failed", slog.Any("error", err))
			}
		}
	}
}

// RunOnce deletes the terminal rows and returns how many were removed.
func (c *Cleaner) RunOnce(ctx context.Context) (int, error) {
	n, err := transaction.ExecuteWithResult(ctx, c.scope, func(ctx context.Context) (int, error) {
		return c.store.DeleteByOutboxStatus(ctx, c.cfg.Kind, c.cfg.SagaType, saga.OutboxCompleted, c.cfg.SagaStatuses...)
	})
	if err != nil {
		return 0, fmt.Errorf("deleting %s outbox messages: %w", c.cfg.Kind, err)
	}
	if n > 0 {
		c.logger.Info("deleted completed outbox messages", slog.Int("count", n))
	}
	c.metrics.ObserveCleaned(c.cfg.Kind.String(), n)
	return n, nil
}
