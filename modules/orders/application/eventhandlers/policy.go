// Package eventhandlers adapts inbound saga messages to the order service's
// saga steps.
package eventhandlers

import (
	"errors"
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

// settle decides whether a step error is acknowledged or redelivered.
// Conflicts and duplicates mean another delivery already applied the message;
// missing rows and rule violations would fail again on every retry.
func settle(logger *slog.Logger, sagaID string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transaction.ErrConflict), errors.Is(err, outbox.ErrDuplicateMessage):
		logger.Debug("concurrent delivery already applied", slog.String("saga_id", sagaID), slog.Any("error", err))
		return nil
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, outbox.ErrMessageNotFound):
		logger.Error("dropping message for missing record", slog.String("saga_id", sagaID), slog.Any("error", err))
		return nil
	case domain.IsValidationError(err):
		logger.Error("dropping message violating order rules", slog.String("saga_id", sagaID), slog.Any("error", err))
		return nil
	default:
		return err
	}
}
