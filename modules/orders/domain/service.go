package domain

import "log/slog"

// Service applies the order state machine and returns the resulting events.
// It never touches persistence.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ValidateAndInitiateOrder checks the restaurant and the order's prices and
// moves a new order into PENDING.
func (s *Service) ValidateAndInitiateOrder(order *Order, restaurant Restaurant) (OrderCreatedEvent, error) {
	if !restaurant.Active {
		return OrderCreatedEvent{}, invalid("레스토랑: %s는 현재 주문을 받지 않습니다.", restaurant.ID)
	}
	order.ApplyConfirmedProducts(restaurant.Products)
	if err := order.Validate(); err != nil {
		return OrderCreatedEvent{}, err
	}
	order.Initialize()

	s.logger.Info("order initiated", slog.String("order_id", order.ID().String()))
	return OrderCreatedEvent{BaseEvent: newOrderEvent(OrderCreatedEventType, order), Order: order}, nil
}

func (s *Service) PayOrder(order *Order) (OrderPaidEvent, error) {
	if err := order.Pay(); err != nil {
		return OrderPaidEvent{}, err
	}
	s.logger.Info("order paid", slog.String("order_id", order.ID().String()))
	return OrderPaidEvent{BaseEvent: newOrderEvent(OrderPaidEventType, order), Order: order}, nil
}

func (s *Service) ApproveOrder(order *Order) error {
	if err := order.Approve(); err != nil {
		return err
	}
	s.logger.Info("order approved", slog.String("order_id", order.ID().String()))
	return nil
}

// CancelOrderPayment starts compensation after the restaurant rejected a
// paid order.
func (s *Service) CancelOrderPayment(order *Order, failureMessages []string) (OrderCancelledEvent, error) {
	if err := order.InitCancel(failureMessages); err != nil {
		return OrderCancelledEvent{}, err
	}
	s.logger.Info("order cancelling", slog.String("order_id", order.ID().String()))
	return OrderCancelledEvent{BaseEvent: newOrderEvent(OrderCancelledEventType, order), Order: order}, nil
}

func (s *Service) CancelOrder(order *Order, failureMessages []string) error {
	if err := order.Cancel(failureMessages); err != nil {
		return err
	}
	s.logger.Info("order cancelled", slog.String("order_id", order.ID().String()))
	return nil
}
