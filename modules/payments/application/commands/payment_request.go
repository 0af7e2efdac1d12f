// Package commands applies payment requests coming from the order service.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const tracerName = "github.com/Jbiscode/MSA-Order-Service/modules/payments/application/commands"

// ErrInvalidRequest is returned for a payment request whose identifiers or
// amount cannot be parsed.
var ErrInvalidRequest = errors.New("invalid payment request")

// Repositories groups the stores the handler writes in one transaction.
type Repositories struct {
	Payments  domain.PaymentRepository
	Credits   domain.CreditEntryRepository
	Histories domain.CreditHistoryRepository
	Outbox    outbox.Store
}

// PaymentRequestHandler debits or refunds a customer's credit for an order
// and records the response in the outbox.
type PaymentRequestHandler struct {
	repos     Repositories
	scope     transaction.Scope
	service   *domain.Service
	publisher outbox.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewPaymentRequestHandler builds the handler. publisher re-sends responses
// that were already delivered when a request arrives again; it may be nil.
func NewPaymentRequestHandler(
	repos Repositories,
	scope transaction.Scope,
	service *domain.Service,
	publisher outbox.Publisher,
	logger *slog.Logger,
) *PaymentRequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentRequestHandler{
		repos:     repos,
		scope:     scope,
		service:   service,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// CompletePayment debits the order price from the customer's credit.
func (h *PaymentRequestHandler) CompletePayment(ctx context.Context, req contracts.PaymentRequest) error {
	ctx, span := h.tracer.Start(ctx, "payments.complete", trace.WithAttributes(attribute.String("saga.id", req.SagaID)))
	defer span.End()

	return h.apply(ctx, req, domain.PaymentCompleted, func(ctx context.Context) (domain.PaymentEvent, error) {
		payment, err := newPayment(req)
		if err != nil {
			return domain.PaymentEvent{}, err
		}
		entry, err := h.creditEntry(ctx, payment.CustomerID())
		if err != nil {
			return domain.PaymentEvent{}, err
		}
		histories, err := h.creditHistory(ctx, payment.CustomerID())
		if err != nil {
			return domain.PaymentEvent{}, err
		}
		event := h.service.ValidateAndInitiatePayment(payment, &entry, histories)
		return event, h.persist(ctx, event, entry)
	})
}

// CancelPayment refunds a previously completed payment.
func (h *PaymentRequestHandler) CancelPayment(ctx context.Context, req contracts.PaymentRequest) error {
	ctx, span := h.tracer.Start(ctx, "payments.cancel", trace.WithAttributes(attribute.String("saga.id", req.SagaID)))
	defer span.End()

	return h.apply(ctx, req, domain.PaymentCancelled, func(ctx context.Context) (domain.PaymentEvent, error) {
		orderID, err := types.ParseOrderID(req.OrderID)
		if err != nil {
			return domain.PaymentEvent{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		payment, ok, err := h.repos.Payments.FindByOrderID(ctx, orderID)
		if err != nil {
			return domain.PaymentEvent{}, fmt.Errorf("loading payment: %w", err)
		}
		if !ok {
			return domain.PaymentEvent{}, fmt.Errorf("order %s: %w", orderID, domain.ErrPaymentNotFound)
		}
		entry, err := h.creditEntry(ctx, payment.CustomerID())
		if err != nil {
			return domain.PaymentEvent{}, err
		}
		event := h.service.ValidateAndCancelPayment(payment, &entry)
		return event, h.persist(ctx, event, entry)
	})
}

// apply runs run in a transaction unless the response for expected was
// already delivered, in which case that response is published again.
func (h *PaymentRequestHandler) apply(
	ctx context.Context,
	req contracts.PaymentRequest,
	expected domain.PaymentStatus,
	run func(ctx context.Context) (domain.PaymentEvent, error),
) error {
	var delivered *outbox.Message
	err := h.scope.Execute(ctx, func(ctx context.Context) error {
		msg, ok, err := h.repos.Outbox.FindByDomainStatus(ctx, outbox.KindOrder, saga.OrderSagaName, req.SagaID, expected.String(), saga.OutboxCompleted)
		if err != nil {
			return fmt.Errorf("loading order outbox: %w", err)
		}
		if ok {
			delivered = &msg
			return nil
		}

		event, err := run(ctx)
		if err != nil {
			return err
		}

		row, err := outbox.NewMessage(outbox.KindOrder, req.SagaID, response(req.SagaID, event), event.Payment.Status().String(), SagaStatusFor(event.Payment.Status()))
		if err != nil {
			return err
		}
		if err := h.repos.Outbox.Insert(ctx, row); err != nil {
			return fmt.Errorf("saving order outbox: %w", err)
		}

		h.logger.Info("payment request applied",
			slog.String("saga_id", req.SagaID),
			slog.String("order_id", req.OrderID),
			slog.String("payment_status", event.Payment.Status().String()))
		return nil
	})
	if err != nil || delivered == nil {
		return err
	}

	h.logger.Info("payment request already applied, publishing response again",
		slog.String("saga_id", req.SagaID),
		slog.String("payment_status", expected.String()))
	if h.publisher != nil {
		h.publisher.Publish(ctx, *delivered, outbox.OutcomeRecorder(h.repos.Outbox, h.scope, h.logger))
	}
	return nil
}

// persist always stores the payment; the credit entry and the new ledger
// row only change when the payment succeeded.
func (h *PaymentRequestHandler) persist(ctx context.Context, event domain.PaymentEvent, entry domain.CreditEntry) error {
	if err := h.repos.Payments.Save(ctx, event.Payment); err != nil {
		return fmt.Errorf("saving payment: %w", err)
	}
	if !event.Succeeded() {
		return nil
	}
	if err := h.repos.Credits.Save(ctx, entry); err != nil {
		return fmt.Errorf("saving credit entry: %w", err)
	}
	if err := h.repos.Histories.Append(ctx, event.History); err != nil {
		return fmt.Errorf("saving credit history: %w", err)
	}
	return nil
}

func (h *PaymentRequestHandler) creditEntry(ctx context.Context, customerID types.CustomerID) (domain.CreditEntry, error) {
	entry, ok, err := h.repos.Credits.FindByCustomerID(ctx, customerID)
	if err != nil {
		return domain.CreditEntry{}, fmt.Errorf("loading credit entry: %w", err)
	}
	if !ok {
		h.logger.Error("credit entry not found", slog.String("customer_id", customerID.String()))
		return domain.CreditEntry{}, fmt.Errorf("customer %s: %w", customerID, domain.ErrCreditEntryNotFound)
	}
	return entry, nil
}

func (h *PaymentRequestHandler) creditHistory(ctx context.Context, customerID types.CustomerID) ([]domain.CreditHistory, error) {
	histories, ok, err := h.repos.Histories.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("loading credit history: %w", err)
	}
	if !ok {
		h.logger.Error("credit history not found", slog.String("customer_id", customerID.String()))
		return nil, fmt.Errorf("customer %s: %w", customerID, domain.ErrCreditHistoryNotFound)
	}
	return histories, nil
}

func newPayment(req contracts.PaymentRequest) (*domain.Payment, error) {
	orderID, err := types.ParseOrderID(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	customerID, err := types.ParseCustomerID(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return domain.NewPayment(orderID, customerID, types.NewMoney(req.Price)), nil
}

// SagaStatusFor maps a payment outcome to the saga status of its response row.
func SagaStatusFor(status domain.PaymentStatus) saga.Status {
	switch status {
	case domain.PaymentCompleted:
		return saga.StatusProcessing
	case domain.PaymentCancelled:
		return saga.StatusCompensated
	default:
		return saga.StatusFailed
	}
}

func response(sagaID string, event domain.PaymentEvent) contracts.PaymentResponse {
	p := event.Payment
	failures := event.FailureMessages
	if failures == nil {
		failures = []string{}
	}
	return contracts.PaymentResponse{
		ID:              uuid.New().String(),
		SagaID:          sagaID,
		PaymentID:       p.ID().String(),
		CustomerID:      p.CustomerID().String(),
		OrderID:         p.OrderID().String(),
		Price:           p.Price().Amount(),
		CreatedAt:       p.CreatedAt(),
		PaymentStatus:   contracts.PaymentStatus(p.Status()),
		FailureMessages: failures,
	}
}
