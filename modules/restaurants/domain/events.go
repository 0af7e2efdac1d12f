package domain

import "github.com/Jbiscode/MSA-Order-Service/modules/shared/events"

const (
	OrderApprovedEventType events.EventType = "restaurants.OrderApproved"
	OrderRejectedEventType events.EventType = "restaurants.OrderRejected"
)

// OrderApprovalEvent reports a restaurant decision.
type OrderApprovalEvent struct {
	events.BaseEvent
	Approval        OrderApproval
	FailureMessages []string
}
