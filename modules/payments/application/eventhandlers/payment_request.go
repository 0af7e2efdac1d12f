// Package eventhandlers adapts payment-request messages to the payment
// commands.
package eventhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// PaymentCommands is the part of the payment handler the listener drives.
type PaymentCommands interface {
	CompletePayment(ctx context.Context, req contracts.PaymentRequest) error
	CancelPayment(ctx context.Context, req contracts.PaymentRequest) error
}

// PaymentRequestHandler consumes the payment-request topic.
type PaymentRequestHandler struct {
	commands PaymentCommands
	logger   *slog.Logger
}

func NewPaymentRequestHandler(commands PaymentCommands, logger *slog.Logger) *PaymentRequestHandler {
	return &PaymentRequestHandler{commands: commands, logger: logger}
}

// Handle matches messaging.Handler.
func (h *PaymentRequestHandler) Handle(ctx context.Context, key string, payload []byte) error {
	var req contracts.PaymentRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.logger.Error("dropping undecodable payment request", slog.String("key", key), slog.Any("error", err))
		return nil
	}

	h.logger.Info("payment request received",
		slog.String("saga_id", req.SagaID),
		slog.String("order_id", req.OrderID),
		slog.String("payment_order_status", string(req.PaymentOrderStatus)))

	var err error
	switch req.PaymentOrderStatus {
	case contracts.PaymentOrderPending:
		err = h.commands.CompletePayment(ctx, req)
	case contracts.PaymentOrderCancelled:
		err = h.commands.CancelPayment(ctx, req)
	default:
		h.logger.Error("dropping payment request with unknown status", slog.String("saga_id", req.SagaID))
		return nil
	}
	return h.settle(req.SagaID, err)
}

func (h *PaymentRequestHandler) settle(sagaID string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transaction.ErrConflict), errors.Is(err, outbox.ErrDuplicateMessage):
		h.logger.Debug("concurrent delivery already applied", slog.String("saga_id", sagaID), slog.Any("error", err))
		return nil
	case errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrCreditEntryNotFound),
		errors.Is(err, domain.ErrCreditHistoryNotFound),
		errors.Is(err, commands.ErrInvalidRequest):
		h.logger.Error("dropping payment request", slog.String("saga_id", sagaID), slog.Any("error", err))
		return nil
	default:
		return err
	}
}
