package steps

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

const tracerName = "github.com/Jbiscode/MSA-Order-Service/modules/orders/application/steps"

// PaymentStep reacts to payment responses: a completed payment moves the
// order to PAID and requests restaurant approval, a failed or refunded
// payment cancels the order.
type PaymentStep struct {
	orders  domain.OrderRepository
	outbox  outbox.Store
	scope   transaction.Scope
	service *domain.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewPaymentStep(
	orders domain.OrderRepository,
	store outbox.Store,
	scope transaction.Scope,
	service *domain.Service,
	logger *slog.Logger,
) *PaymentStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentStep{
		orders:  orders,
		outbox:  store,
		scope:   scope,
		service: service,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Process applies a COMPLETED payment.
func (s *PaymentStep) Process(ctx context.Context, resp contracts.PaymentResponse) error {
	ctx, span := s.tracer.Start(ctx, "orders.payment.process", trace.WithAttributes(attribute.String("saga.id", resp.SagaID)))
	defer span.End()

	return s.scope.Execute(ctx, func(ctx context.Context) error {
		msg, ok, err := s.outbox.FindBySagaID(ctx, outbox.KindPayment, saga.OrderSagaName, resp.SagaID, saga.StatusStarted)
		if err != nil {
			return fmt.Errorf("loading payment outbox: %w", err)
		}
		if !ok {
			s.logger.Info("payment response already processed", slog.String("saga_id", resp.SagaID))
			return nil
		}

		order, err := findOrder(ctx, s.orders, resp.OrderID)
		if err != nil {
			return err
		}
		if _, err := s.service.PayOrder(order); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}

		sagaStatus := SagaStatusFor(order.Status())
		msg.Processed(sagaStatus, order.Status().String())
		if err := s.outbox.Update(ctx, &msg); err != nil {
			return fmt.Errorf("updating payment outbox: %w", err)
		}

		approval, err := outbox.NewMessage(outbox.KindApproval, resp.SagaID, ApprovalRequest(resp.SagaID, order), order.Status().String(), sagaStatus)
		if err != nil {
			return err
		}
		if err := s.outbox.Insert(ctx, approval); err != nil {
			return fmt.Errorf("saving approval outbox: %w", err)
		}

		s.logger.Info("order paid, approval requested",
			slog.String("saga_id", resp.SagaID),
			slog.String("order_id", order.ID().String()))
		return nil
	})
}

// rollbackSagaStatuses lists where the payment row must be for a response
// of the given status to still apply.
func rollbackSagaStatuses(status contracts.PaymentStatus) []saga.Status {
	switch status {
	case contracts.PaymentCompleted:
		return []saga.Status{saga.StatusStarted}
	case contracts.PaymentCancelled:
		return []saga.Status{saga.StatusProcessing}
	default:
		return []saga.Status{saga.StatusStarted, saga.StatusProcessing}
	}
}

// Rollback applies a CANCELLED or FAILED payment by cancelling the order.
func (s *PaymentStep) Rollback(ctx context.Context, resp contracts.PaymentResponse) error {
	ctx, span := s.tracer.Start(ctx, "orders.payment.rollback", trace.WithAttributes(
		attribute.String("saga.id", resp.SagaID),
		attribute.String("payment.status", string(resp.PaymentStatus))))
	defer span.End()

	return s.scope.Execute(ctx, func(ctx context.Context) error {
		msg, ok, err := s.outbox.FindBySagaID(ctx, outbox.KindPayment, saga.OrderSagaName, resp.SagaID, rollbackSagaStatuses(resp.PaymentStatus)...)
		if err != nil {
			return fmt.Errorf("loading payment outbox: %w", err)
		}
		if !ok {
			s.logger.Info("payment rollback already processed",
				slog.String("saga_id", resp.SagaID),
				slog.String("payment_status", string(resp.PaymentStatus)))
			return nil
		}

		order, err := findOrder(ctx, s.orders, resp.OrderID)
		if err != nil {
			return err
		}
		if err := s.service.CancelOrder(order, resp.FailureMessages); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}

		sagaStatus := saga.StatusFailed
		if resp.PaymentStatus == contracts.PaymentCancelled {
			sagaStatus = SagaStatusFor(order.Status())
		}
		msg.Processed(sagaStatus, order.Status().String())
		if err := s.outbox.Update(ctx, &msg); err != nil {
			return fmt.Errorf("updating payment outbox: %w", err)
		}

		// A refund completes the compensation the restaurant rejection started.
		if resp.PaymentStatus == contracts.PaymentCancelled {
			approval, ok, err := s.outbox.FindBySagaID(ctx, outbox.KindApproval, saga.OrderSagaName, resp.SagaID, saga.StatusCompensating)
			if err != nil {
				return fmt.Errorf("loading approval outbox: %w", err)
			}
			if !ok {
				return fmt.Errorf("approval outbox for saga %s: %w", resp.SagaID, outbox.ErrMessageNotFound)
			}
			approval.Processed(sagaStatus, order.Status().String())
			if err := s.outbox.Update(ctx, &approval); err != nil {
				return fmt.Errorf("updating approval outbox: %w", err)
			}
		}

		s.logger.Info("order cancelled",
			slog.String("saga_id", resp.SagaID),
			slog.String("order_id", order.ID().String()),
			slog.String("saga_status", sagaStatus.String()))
		return nil
	})
}

var _ saga.Step[contracts.PaymentResponse] = (*PaymentStep)(nil)
