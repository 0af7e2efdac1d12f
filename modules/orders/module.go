// Package orders is the order service: it accepts orders, drives them
// through payment and restaurant approval, and reports their progress.
package orders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/eventhandlers"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/queries"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/steps"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	httphandler "github.com/Jbiscode/MSA-Order-Service/modules/orders/infrastructure/http"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// Module is the public API of the order service.
// External communication: HTTP API (RegisterRoutes) and the saga topics.
type Module interface {
	RegisterRoutes(mux *http.ServeMux)
	CreateOrder(ctx context.Context, cmd commands.CreateOrderCommand) (commands.CreateOrderResult, error)
	TrackOrder(ctx context.Context, trackingID string) (queries.TrackOrderResult, error)
	// Subscriptions maps each inbound topic to its handler.
	Subscriptions() map[string]messaging.Handler
	// Routes lists the outbox relays of the payment and approval requests.
	Routes() []outbox.Route
	// Cleaners lists the outbox cleaners.
	Cleaners() []outbox.CleanerConfig
}

// Config holds the module configuration.
type Config struct {
	Orders      domain.OrderRepository
	Customers   domain.CustomerRepository
	Restaurants domain.RestaurantRepository
	Outbox      outbox.Store
	TxScope     transaction.Scope
	Logger      *slog.Logger
}

type module struct {
	createOrder *commands.CreateOrderHandler
	trackOrder  *queries.TrackOrderHandler
	payment     *eventhandlers.PaymentResponseHandler
	approval    *eventhandlers.ApprovalResponseHandler
	logger      *slog.Logger
}

func New(cfg Config) Module {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "orders")

	service := domain.NewService(logger)
	paymentStep := steps.NewPaymentStep(cfg.Orders, cfg.Outbox, cfg.TxScope, service, logger)
	approvalStep := steps.NewApprovalStep(cfg.Orders, cfg.Outbox, cfg.TxScope, service, logger)

	return &module{
		createOrder: commands.NewCreateOrderHandler(cfg.Orders, cfg.Customers, cfg.Restaurants, cfg.Outbox, cfg.TxScope, service, logger),
		trackOrder:  queries.NewTrackOrderHandler(cfg.Orders),
		payment:     eventhandlers.NewPaymentResponseHandler(paymentStep, logger),
		approval:    eventhandlers.NewApprovalResponseHandler(approvalStep, logger),
		logger:      logger,
	}
}

func (m *module) RegisterRoutes(mux *http.ServeMux) {
	httphandler.RegisterRoutes(mux, m.createOrder, m.trackOrder, m.logger)
}

func (m *module) CreateOrder(ctx context.Context, cmd commands.CreateOrderCommand) (commands.CreateOrderResult, error) {
	return m.createOrder.Handle(ctx, cmd)
}

func (m *module) TrackOrder(ctx context.Context, trackingID string) (queries.TrackOrderResult, error) {
	return m.trackOrder.Handle(ctx, queries.TrackOrderQuery{TrackingID: trackingID})
}

func (m *module) Subscriptions() map[string]messaging.Handler {
	return map[string]messaging.Handler{
		contracts.PaymentResponseTopic:            m.payment.Handle,
		contracts.RestaurantApprovalResponseTopic: m.approval.Handle,
	}
}

func (m *module) Routes() []outbox.Route {
	return []outbox.Route{
		{
			Relay: outbox.RelayConfig{
				Kind:         outbox.KindPayment,
				SagaStatuses: []saga.Status{saga.StatusStarted, saga.StatusCompensating},
			},
			Topic: contracts.PaymentRequestTopic,
		},
		{
			Relay: outbox.RelayConfig{
				Kind:         outbox.KindApproval,
				SagaStatuses: []saga.Status{saga.StatusProcessing},
			},
			Topic: contracts.RestaurantApprovalRequestTopic,
		},
	}
}

func (m *module) Cleaners() []outbox.CleanerConfig {
	return []outbox.CleanerConfig{
		{Kind: outbox.KindPayment, SagaStatuses: saga.TerminalStatuses()},
		{Kind: outbox.KindApproval, SagaStatuses: saga.TerminalStatuses()},
	}
}
