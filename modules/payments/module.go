// Package payments is the payment service: it debits and refunds customer
// credit on behalf of the order saga.
package payments

import (
	"context"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/application/eventhandlers"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// Module is the public API of the payment service.
// External communication: the payment-request and payment-response topics.
type Module interface {
	CompletePayment(ctx context.Context, req contracts.PaymentRequest) error
	CancelPayment(ctx context.Context, req contracts.PaymentRequest) error
	Subscriptions() map[string]messaging.Handler
	Routes() []outbox.Route
	Cleaners() []outbox.CleanerConfig
}

// Config holds the module configuration.
type Config struct {
	Payments  domain.PaymentRepository
	Credits   domain.CreditEntryRepository
	Histories domain.CreditHistoryRepository
	Outbox    outbox.Store
	TxScope   transaction.Scope
	// Sender re-publishes responses for requests that arrive again after
	// their response was delivered. Optional.
	Sender messaging.Sender
	Logger *slog.Logger
}

type module struct {
	requests *commands.PaymentRequestHandler
	listener *eventhandlers.PaymentRequestHandler
}

func New(cfg Config) Module {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "payments")

	var publisher outbox.Publisher
	if cfg.Sender != nil {
		publisher = messaging.NewOutboxPublisher(cfg.Sender, contracts.PaymentResponseTopic, logger)
	}

	requests := commands.NewPaymentRequestHandler(commands.Repositories{
		Payments:  cfg.Payments,
		Credits:   cfg.Credits,
		Histories: cfg.Histories,
		Outbox:    cfg.Outbox,
	}, cfg.TxScope, domain.NewService(logger), publisher, logger)

	return &module{
		requests: requests,
		listener: eventhandlers.NewPaymentRequestHandler(requests, logger),
	}
}

func (m *module) CompletePayment(ctx context.Context, req contracts.PaymentRequest) error {
	return m.requests.CompletePayment(ctx, req)
}

func (m *module) CancelPayment(ctx context.Context, req contracts.PaymentRequest) error {
	return m.requests.CancelPayment(ctx, req)
}

func (m *module) Subscriptions() map[string]messaging.Handler {
	return map[string]messaging.Handler{
		contracts.PaymentRequestTopic: m.listener.Handle,
	}
}

// Routes publishes every response row regardless of saga status.
func (m *module) Routes() []outbox.Route {
	return []outbox.Route{{
		Relay: outbox.RelayConfig{Kind: outbox.KindOrder},
		Topic: contracts.PaymentResponseTopic,
	}}
}

func (m *module) Cleaners() []outbox.CleanerConfig {
	return []outbox.CleanerConfig{{Kind: outbox.KindOrder}}
}
