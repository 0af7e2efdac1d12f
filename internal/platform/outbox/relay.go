package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/metrics"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

const tracerName = "github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"

// Callback records the delivery outcome of msg.
type Callback func(ctx context.Context, msg Message, status saga.OutboxStatus)

// Publisher hands an outbox payload to the broker. Implementations must call
// done exactly once, with OutboxCompleted on ack or OutboxFailed on error,
// before Publish returns.
type Publisher interface {
	Publish(ctx context.Context, msg Message, done Callback)
}

// RelayConfig selects which rows a relay delivers.
type RelayConfig struct {
	Kind     Kind
	SagaType string
	// SagaStatuses restricts delivery to in-flight saga states; empty means any.
	SagaStatuses []saga.Status
	Interval     time.Duration
}

// Route binds the rows a relay selects to the topic they are published on.
type Route struct {
	Relay RelayConfig
	Topic string
}

// PassResult counts what one relay pass did.
type PassResult struct {
	Selected       int
	Published      int
	Failed         int
	CallbackFailed int
}

// Relay periodically publishes STARTED outbox rows. It never holds a
// transaction while publishing: rows are read first, each publish outcome is
// then written in its own short transaction.
type Relay struct {
	store     Store
	scope     transaction.Scope
	publisher Publisher
	cfg       RelayConfig
	logger    *slog.Logger
	metrics   *metrics.OutboxMetrics
	tracer    trace.Tracer
}

func NewRelay(
	store Store,
	scope transaction.Scope,
	publisher Publisher,
	cfg RelayConfig,
	logger *slog.Logger,
	m *metrics.OutboxMetrics,
) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.SagaType == "" {
		cfg.SagaType = saga.OrderSagaName
	}
	return &Relay{
		store:     store,
		scope:     scope,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "outbox_relay"), slog.String("kind", cfg.Kind.String())),
		metrics:   m,
		tracer:    otel.Tracer(tracerName),
	}
}

// Run executes a pass every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("outbox relay pass failed", slog.Any("error", err))
			}
		}
	}
}

// RunOnce publishes every row currently eligible for delivery.
func (r *Relay) RunOnce(ctx context.Context) (PassResult, error) {
	ctx, span := r.tracer.Start(ctx, "outbox.relay.pass",
		trace.WithAttributes(attribute.String("outbox.kind", r.cfg.Kind.String())))
	defer span.End()

	start := time.Now()
	defer func() { r.metrics.ObservePass(r.cfg.Kind.String(), time.Since(start)) }()

	msgs, err := r.store.FindByOutboxStatus(ctx, r.cfg.Kind, r.cfg.SagaType, saga.OutboxStarted, r.cfg.SagaStatuses...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return PassResult{}, fmt.Errorf("loading %s outbox messages: %w", r.cfg.Kind, err)
	}

	result := PassResult{Selected: len(msgs)}
	if len(msgs) == 0 {
		return result, nil
	}
	r.logger.Info("publishing outbox messages", slog.Int("count", len(msgs)))

	for _, msg := range msgs {
		r.publisher.Publish(ctx, msg, func(ctx context.Context, msg Message, status saga.OutboxStatus) {
			switch status {
			case saga.OutboxCompleted:
				result.Published++
				r.metrics.ObservePublished(r.cfg.Kind.String(), metrics.OutcomeCompleted)
			default:
				result.Failed++
				r.metrics.ObservePublished(r.cfg.Kind.String(), metrics.OutcomeFailed)
			}
			if err := RecordOutcome(ctx, r.store, r.scope, msg, status); err != nil {
				result.CallbackFailed++
				r.logger.Error("failed to record outbox outcome",
					slog.String("outbox_id", msg.ID),
					slog.String("saga_id", msg.SagaID),
					slog.Any("error", err))
			}
		})
	}

	span.SetAttributes(
		attribute.Int("outbox.published", result.Published),
		attribute.Int("outbox.failed", result.Failed),
	)
	return result, nil
}

// RecordOutcome stores the delivery status of msg in a short transaction of
// its own. A saga step may have advanced the row while it was being
// published; in that case the latest version is reloaded and only the
// delivery status is applied on top of it.
func RecordOutcome(ctx context.Context, store Store, scope transaction.Scope, msg Message, status saga.OutboxStatus) error {
	err := scope.Execute(ctx, func(ctx context.Context) error {
		return markDelivered(ctx, store, msg, status)
	})
	if !errors.Is(err, ErrStaleWrite) {
		return err
	}

	return scope.Execute(ctx, func(ctx context.Context) error {
		latest, ok, err := store.FindByID(ctx, msg.ID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return markDelivered(ctx, store, latest, status)
	})
}

func markDelivered(ctx context.Context, store Store, msg Message, status saga.OutboxStatus) error {
	now := time.Now().UTC()
	msg.OutboxStatus = status
	msg.ProcessedAt = &now
	return store.Update(ctx, &msg)
}

// OutcomeRecorder returns a Callback that persists outcomes with RecordOutcome
// and logs failures.
func OutcomeRecorder(store Store, scope transaction.Scope, logger *slog.Logger) Callback {
	return func(ctx context.Context, msg Message, status saga.OutboxStatus) {
		if err := RecordOutcome(ctx, store, scope, msg, status); err != nil {
			logger.Error("failed to record outbox outcome",
				slog.String("outbox_id", msg.ID),
				slog.String("saga_id", msg.SagaID),
				slog.Any("error", err))
		}
	}
}
