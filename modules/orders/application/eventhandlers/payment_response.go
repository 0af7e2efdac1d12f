package eventhandlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// PaymentResponseHandler feeds payment-response messages into the payment step.
type PaymentResponseHandler struct {
	step   saga.Step[contracts.PaymentResponse]
	logger *slog.Logger
}

func NewPaymentResponseHandler(step saga.Step[contracts.PaymentResponse], logger *slog.Logger) *PaymentResponseHandler {
	return &PaymentResponseHandler{step: step, logger: logger}
}

// Handle matches messaging.Handler.
func (h *PaymentResponseHandler) Handle(ctx context.Context, key string, payload []byte) error {
	var resp contracts.PaymentResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		h.logger.Error("dropping undecodable payment response", slog.String("key", key), slog.Any("error", err))
		return nil
	}

	h.logger.Info("payment response received",
		slog.String("saga_id", resp.SagaID),
		slog.String("order_id", resp.OrderID),
		slog.String("payment_status", string(resp.PaymentStatus)))

	var err error
	if resp.PaymentStatus == contracts.PaymentCompleted {
		err = h.step.Process(ctx, resp)
	} else {
		err = h.step.Rollback(ctx, resp)
	}
	return settle(h.logger, resp.SagaID, err)
}
