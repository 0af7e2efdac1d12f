package eventhandlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// ApprovalResponseHandler feeds restaurant-approval-response messages into
// the approval step.
type ApprovalResponseHandler struct {
	step   saga.Step[contracts.RestaurantApprovalResponse]
	logger *slog.Logger
}

func NewApprovalResponseHandler(step saga.Step[contracts.RestaurantApprovalResponse], logger *slog.Logger) *ApprovalResponseHandler {
	return &ApprovalResponseHandler{step: step, logger: logger}
}

func (h *ApprovalResponseHandler) Handle(ctx context.Context, key string, payload []byte) error {
	var resp contracts.RestaurantApprovalResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		h.logger.Error("dropping undecodable approval response", slog.String("key", key), slog.Any("error", err))
		return nil
	}

	var err error
	switch resp.OrderApprovalStatus {
	case contracts.OrderApprovalApproved:
		h.logger.Info("order approval received", slog.String("saga_id", resp.SagaID), slog.String("order_id", resp.OrderID))
		err = h.step.Process(ctx, resp)
	case contracts.OrderApprovalRejected:
		h.logger.Info("order rejection received",
			slog.String("saga_id", resp.SagaID),
			slog.String("order_id", resp.OrderID),
			slog.String("failure_messages", strings.Join(resp.FailureMessages, ",")))
		err = h.step.Rollback(ctx, resp)
	default:
		h.logger.Error("dropping approval response with unknown status",
			slog.String("saga_id", resp.SagaID),
			slog.String("status", string(resp.OrderApprovalStatus)))
		return nil
	}
	return settle(h.logger, resp.SagaID, err)
}
