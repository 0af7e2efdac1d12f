package domain

import (
	"log/slog"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events"
)

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ValidateOrder approves the order when no rule fails and rejects it
// otherwise.
func (s *Service) ValidateOrder(restaurant *Restaurant) OrderApprovalEvent {
	failures := restaurant.ValidateOrder()
	status, eventType := Approved, OrderApprovedEventType
	if len(failures) > 0 {
		status, eventType = Rejected, OrderRejectedEventType
		s.logger.Info("order rejected",
			slog.String("order_id", restaurant.OrderDetail.ID.String()),
			slog.Any("failure_messages", failures))
	} else {
		s.logger.Info("order approved", slog.String("order_id", restaurant.OrderDetail.ID.String()))
	}

	restaurant.ConstructOrderApproval(status)
	return OrderApprovalEvent{
		BaseEvent:       events.NewBaseEvent(eventType, restaurant.ID.String()),
		Approval:        *restaurant.approval,
		FailureMessages: failures,
	}
}
