// Package eventhandlers adapts restaurant-approval-request messages to the
// approval command.
package eventhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

type ApprovalCommand interface {
	PersistOrderApproval(ctx context.Context, req contracts.RestaurantApprovalRequest) error
}

// ApprovalRequestHandler consumes the restaurant-approval-request topic.
type ApprovalRequestHandler struct {
	command ApprovalCommand
	logger  *slog.Logger
}

func NewApprovalRequestHandler(command ApprovalCommand, logger *slog.Logger) *ApprovalRequestHandler {
	return &ApprovalRequestHandler{command: command, logger: logger}
}

// Handle matches messaging.Handler.
func (h *ApprovalRequestHandler) Handle(ctx context.Context, key string, payload []byte) error {
	var req contracts.RestaurantApprovalRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.logger.Error("dropping undecodable approval request", slog.String("key", key), slog.Any("error", err))
		return nil
	}

	h.logger.Info("approval request received",
		slog.String("saga_id", req.SagaID),
		slog.String("order_id", req.OrderID),
		slog.String("restaurant_id", req.RestaurantID))

	err := h.command.PersistOrderApproval(ctx, req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transaction.ErrConflict), errors.Is(err, outbox.ErrDuplicateMessage):
		h.logger.Debug("concurrent delivery already applied", slog.String("saga_id", req.SagaID), slog.Any("error", err))
		return nil
	case errors.Is(err, domain.ErrRestaurantNotFound), errors.Is(err, commands.ErrInvalidRequest):
		h.logger.Error("dropping approval request", slog.String("saga_id", req.SagaID), slog.Any("error", err))
		return nil
	default:
		return err
	}
}
