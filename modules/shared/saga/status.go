// Package saga defines the vocabulary shared by every participant of the
// order processing saga: its name, saga progress and outbox delivery states.
package saga

import "context"

// OrderSagaName is the type recorded on every outbox row of the order saga.
const OrderSagaName = "OrderProcessingSaga"

// Status is the business progress of one saga instance.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusProcessing   Status = "PROCESSING"
	StatusSucceeded    Status = "SUCCEEDED"
	StatusFailed       Status = "FAILED"
	StatusCompensating Status = "COMPENSATING"
	StatusCompensated  Status = "COMPENSATED"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further saga step will touch the row.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCompensated:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusStarted, StatusProcessing, StatusSucceeded, StatusFailed, StatusCompensating, StatusCompensated:
		return true
	default:
		return false
	}
}

// TerminalStatuses lists the saga states whose delivered rows may be purged.
func TerminalStatuses() []Status {
	return []Status{StatusSucceeded, StatusFailed, StatusCompensated}
}

// OutboxStatus tracks only whether an outbox message has been delivered.
type OutboxStatus string

const (
	OutboxStarted   OutboxStatus = "STARTED"
	OutboxCompleted OutboxStatus = "COMPLETED"
	OutboxFailed    OutboxStatus = "FAILED"
)

func (s OutboxStatus) String() string { return string(s) }

// Step is one transition of the saga: Process moves it forward, Rollback
// compensates. Both must be safe to call more than once for the same data.
type Step[T any] interface {
	Process(ctx context.Context, data T) error
	Rollback(ctx context.Context, data T) error
}
