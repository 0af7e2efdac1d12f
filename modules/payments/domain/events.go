package domain

import "github.com/Jbiscode/MSA-Order-Service/modules/shared/events"

const (
	PaymentCompletedEventType events.EventType = "payments.PaymentCompleted"
	PaymentCancelledEventType events.EventType = "payments.PaymentCancelled"
	PaymentFailedEventType    events.EventType = "payments.PaymentFailed"
)

// PaymentEvent reports the outcome of a charge or refund. History is the
// ledger row the operation appended; it is persisted only when the
// operation succeeded.
type PaymentEvent struct {
	events.BaseEvent
	Payment         *Payment
	History         CreditHistory
	FailureMessages []string
}

// Succeeded reports whether no rule failed.
func (e PaymentEvent) Succeeded() bool {
	return len(e.FailureMessages) == 0
}
