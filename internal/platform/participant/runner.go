// Package participant runs the background side of a saga participant: one
// relay per outbox route, the outbox cleaners and the topic consumers.
package participant

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/metrics"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// Participant is what every service module exposes to the runner.
type Participant interface {
	Subscriptions() map[string]messaging.Handler
	Routes() []outbox.Route
	Cleaners() []outbox.CleanerConfig
}

// Config holds the worker intervals and the publish circuit breaker.
type Config struct {
	RelayInterval   time.Duration
	CleanerInterval time.Duration
	Breaker         messaging.BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		RelayInterval:   10 * time.Second,
		CleanerInterval: 24 * time.Hour,
	}
}

// Runner owns the relays, cleaners and consumers of one participant.
type Runner struct {
	relays        []*outbox.Relay
	cleaners      []*outbox.Cleaner
	subscriptions map[string]messaging.Handler
	consumer      messaging.Consumer
	logger        *slog.Logger
}

// New builds the workers. Relays publish through a circuit breaker around
// transport.
func New(
	p Participant,
	store outbox.Store,
	scope transaction.Scope,
	transport messaging.Transport,
	cfg Config,
	logger *slog.Logger,
	m *metrics.OutboxMetrics,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	sender := messaging.NewBreakerSender(transport, cfg.Breaker, logger)

	r := &Runner{
		subscriptions: p.Subscriptions(),
		consumer:      transport,
		logger:        logger,
	}
	for _, route := range p.Routes() {
		relayCfg := route.Relay
		if relayCfg.Interval <= 0 {
			relayCfg.Interval = cfg.RelayInterval
		}
		publisher := messaging.NewOutboxPublisher(sender, route.Topic, logger)
		r.relays = append(r.relays, outbox.NewRelay(store, scope, publisher, relayCfg, logger, m))
	}
	for _, cleanerCfg := range p.Cleaners() {
		if cleanerCfg.Interval <= 0 {
			cleanerCfg.Interval = cfg.CleanerInterval
		}
		r.cleaners = append(r.cleaners, outbox.NewCleaner(store, scope, cleanerCfg, logger, m))
	}
	return r
}

// Relays returns the relays in route order.
func (r *Runner) Relays() []*outbox.Relay { return r.relays }

// Run starts every worker and returns when ctx is cancelled or a consumer
// fails.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, relay := range r.relays {
		g.Go(func() error { return relay.Run(ctx) })
	}
	for _, cleaner := range r.cleaners {
		g.Go(func() error { return cleaner.Run(ctx) })
	}
	for topic, handler := range r.subscriptions {
		g.Go(func() error {
			r.logger.Info("consuming topic", slog.String("topic", topic))
			return r.consumer.Consume(ctx, topic, handler)
		})
	}
	return g.Wait()
}
