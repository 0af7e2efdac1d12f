// Package restaurants is the restaurant service: it approves or rejects
// paid orders on behalf of the order saga.
package restaurants

import (
	"context"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/application/eventhandlers"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// Module is the public API of the restaurant service.
// External communication: the restaurant-approval-request and
// restaurant-approval-response topics.
type Module interface {
	PersistOrderApproval(ctx context.Context, req contracts.RestaurantApprovalRequest) error
	Subscriptions() map[string]messaging.Handler
	Routes() []outbox.Route
	Cleaners() []outbox.CleanerConfig
}

// Config holds the module configuration.
type Config struct {
	Restaurants domain.RestaurantRepository
	Approvals   domain.OrderApprovalRepository
	Outbox      outbox.Store
	TxScope     transaction.Scope
	// Sender re-publishes already delivered responses. Optional.
	Sender messaging.Sender
	Logger *slog.Logger
}

type module struct {
	approval *commands.ApprovalRequestHandler
	listener *eventhandlers.ApprovalRequestHandler
}

func New(cfg Config) Module {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "restaurants")

	var publisher outbox.Publisher
	if cfg.Sender != nil {
		publisher = messaging.NewOutboxPublisher(cfg.Sender, contracts.RestaurantApprovalResponseTopic, logger)
	}
	approval := commands.NewApprovalRequestHandler(cfg.Restaurants, cfg.Approvals, cfg.Outbox, cfg.TxScope, domain.NewService(logger), publisher, logger)

	return &module{
		approval: approval,
		listener: eventhandlers.NewApprovalRequestHandler(approval, logger),
	}
}

func (m *module) PersistOrderApproval(ctx context.Context, req contracts.RestaurantApprovalRequest) error {
	return m.approval.PersistOrderApproval(ctx, req)
}

func (m *module) Subscriptions() map[string]messaging.Handler {
	return map[string]messaging.Handler{
		contracts.RestaurantApprovalRequestTopic: m.listener.Handle,
	}
}

func (m *module) Routes() []outbox.Route {
	return []outbox.Route{{
		Relay: outbox.RelayConfig{Kind: outbox.KindOrder},
		Topic: contracts.RestaurantApprovalResponseTopic,
	}}
}

func (m *module) Cleaners() []outbox.CleanerConfig {
	return []outbox.CleanerConfig{{Kind: outbox.KindOrder}}
}
