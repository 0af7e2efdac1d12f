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

// ApprovalStep reacts to restaurant decisions. Approval ends the saga;
// rejection cancels the order and asks the payment service for a refund.
type ApprovalStep struct {
	orders  domain.OrderRepository
	outbox  outbox.Store
	scope   transaction.Scope
	service *domain.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewApprovalStep(
	orders domain.OrderRepository,
	store outbox.Store,
	scope transaction.Scope,
	service *domain.Service,
	logger *slog.Logger,
) *ApprovalStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalStep{
		orders:  orders,
		outbox:  store,
		scope:   scope,
		service: service,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

func (s *ApprovalStep) findProcessing(ctx context.Context, sagaID string) (outbox.Message, bool, error) {
	msg, ok, err := s.outbox.FindBySagaID(ctx, outbox.KindApproval, saga.OrderSagaName, sagaID, saga.StatusProcessing)
	if err != nil {
		return outbox.Message{}, false, fmt.Errorf("loading approval outbox: %w", err)
	}
	return msg, ok, nil
}

// Process applies an APPROVED decision.
func (s *ApprovalStep) Process(ctx context.Context, resp contracts.RestaurantApprovalResponse) error {
	ctx, span := s.tracer.Start(ctx, "orders.approval.process", trace.WithAttributes(attribute.String("saga.id", resp.SagaID)))
	defer span.End()

	return s.scope.Execute(ctx, func(ctx context.Context) error {
		msg, ok, err := s.findProcessing(ctx, resp.SagaID)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Info("approval response already processed", slog.String("saga_id", resp.SagaID))
			return nil
		}

		order, err := findOrder(ctx, s.orders, resp.OrderID)
		if err != nil {
			return err
		}
		if err := s.service.ApproveOrder(order); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}

		sagaStatus := SagaStatusFor(order.Status())
		msg.Processed(sagaStatus, order.Status().String())
		if err := s.outbox.Update(ctx, &msg); err != nil {
			return fmt.Errorf("updating approval outbox: %w", err)
		}

		payment, ok, err := s.outbox.FindBySagaID(ctx, outbox.KindPayment, saga.OrderSagaName, resp.SagaID, saga.StatusProcessing)
		if err != nil {
			return fmt.Errorf("loading payment outbox: %w", err)
		}
		if !ok {
			return fmt.Errorf("payment outbox for saga %s: %w", resp.SagaID, outbox.ErrMessageNotFound)
		}
		payment.Processed(sagaStatus, order.Status().String())
		if err := s.outbox.Update(ctx, &payment); err != nil {
			return fmt.Errorf("updating payment outbox: %w", err)
		}

		s.logger.Info("order approved",
			slog.String("saga_id", resp.SagaID),
			slog.String("order_id", order.ID().String()))
		return nil
	})
}

// Rollback applies a REJECTED decision.
func (s *ApprovalStep) Rollback(ctx context.Context, resp contracts.RestaurantApprovalResponse) error {
	ctx, span := s.tracer.Start(ctx, "orders.approval.rollback", trace.WithAttributes(attribute.String("saga.id", resp.SagaID)))
	defer span.End()

	return s.scope.Execute(ctx, func(ctx context.Context) error {
		msg, ok, err := s.findProcessing(ctx, resp.SagaID)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Info("approval rollback already processed", slog.String("saga_id", resp.SagaID))
			return nil
		}

		order, err := findOrder(ctx, s.orders, resp.OrderID)
		if err != nil {
			return err
		}
		if _, err := s.service.CancelOrderPayment(order, resp.FailureMessages); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}

		sagaStatus := SagaStatusFor(order.Status())
		msg.Processed(sagaStatus, order.Status().String())
		if err := s.outbox.Update(ctx, &msg); err != nil {
			return fmt.Errorf("updating approval outbox: %w", err)
		}

		refund, err := outbox.NewMessage(outbox.KindPayment, resp.SagaID,
			PaymentRequest(resp.SagaID, order, contracts.PaymentOrderCancelled),
			order.Status().String(), sagaStatus)
		if err != nil {
			return err
		}
		if err := s.outbox.Insert(ctx, refund); err != nil {
			return fmt.Errorf("saving payment outbox: %w", err)
		}

		s.logger.Info("order rejected, refund requested",
			slog.String("saga_id", resp.SagaID),
			slog.String("order_id", order.ID().String()))
		return nil
	})
}

var _ saga.Step[contracts.RestaurantApprovalResponse] = (*ApprovalStep)(nil)
