package domain

import "github.com/Jbiscode/MSA-Order-Service/modules/shared/events"

const (
	OrderCreatedEventType   events.EventType = "orders.OrderCreated"
	OrderPaidEventType      events.EventType = "orders.OrderPaid"
	OrderCancelledEventType events.EventType = "orders.OrderCancelled"
)

// OrderCreatedEvent is raised when a validated order enters PENDING.
type OrderCreatedEvent struct {
	events.BaseEvent
	Order *Order
}

// OrderPaidEvent is raised when the payment for an order completed.
type OrderPaidEvent struct {
	events.BaseEvent
	Order *Order
}

// OrderCancelledEvent is raised when an order starts compensating.
type OrderCancelledEvent struct {
	events.BaseEvent
	Order *Order
}

func newOrderEvent(t events.EventType, o *Order) events.BaseEvent {
	return events.NewBaseEvent(t, o.ID().String())
}
