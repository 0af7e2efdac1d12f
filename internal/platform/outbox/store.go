package outbox

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

var (
	// ErrStaleWrite is returned when the row changed since it was read.
	ErrStaleWrite = fmt.Errorf("outbox message: %w", transaction.ErrConflict)
	// ErrDuplicateMessage is returned when a row with the same saga identity exists.
	ErrDuplicateMessage = errors.New("outbox message already exists for saga")
	// ErrMessageNotFound is returned when updating a row that does not exist.
	ErrMessageNotFound = errors.New("outbox message not found")
)

// Store persists outbox rows. Every method participates in the transaction
// carried by ctx, if any.
//
// Lookups return (msg, false, nil) when nothing matches. An empty status
// list matches any status.
type Store interface {
	// Insert adds a new row. It fails with ErrDuplicateMessage when a row with
	// the same (kind, type, sagaId, sagaStatus, domainStatus) exists.
	Insert(ctx context.Context, msg Message) error
	// Update writes msg if its Version still matches the stored row, then
	// increments msg.Version. It fails with ErrStaleWrite otherwise.
	Update(ctx context.Context, msg *Message) error
	FindByID(ctx context.Context, id string) (Message, bool, error)
	FindBySagaID(ctx context.Context, kind Kind, sagaType, sagaID string, sagaStatuses ...saga.Status) (Message, bool, error)
	FindByDomainStatus(ctx context.Context, kind Kind, sagaType, sagaID, domainStatus string, outboxStatuses ...saga.OutboxStatus) (Message, bool, error)
	FindByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) ([]Message, error)
	DeleteByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) (int, error)
}

func matches[T comparable](v T, set []T) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

func sameIdentity(a, b Message) bool {
	return a.Kind == b.Kind &&
		a.Type == b.Type &&
		a.SagaID == b.SagaID &&
		a.SagaStatus == b.SagaStatus &&
		a.DomainStatus == b.DomainStatus
}

func statusStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
