// Package outbox implements the transactional outbox shared by every saga
// participant: one row type parameterized by Kind, a Store port with
// in-memory, Spanner and PostgreSQL adapters, and the Relay and Cleaner
// that deliver and purge rows.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// Kind distinguishes the logical outbox tables that share one schema.
type Kind string

const (
	// KindPayment holds payment requests written by the order service.
	KindPayment Kind = "payment"
	// KindApproval holds restaurant approval requests written by the order service.
	KindApproval Kind = "approval"
	// KindOrder holds responses written by the payment and restaurant services.
	KindOrder Kind = "order"
)

func (k Kind) String() string { return string(k) }

// Message is one pending cross-service transition.
type Message struct {
	ID           string
	Kind         Kind
	SagaID       string
	Type         string
	Payload      []byte
	DomainStatus string
	SagaStatus   saga.Status
	OutboxStatus saga.OutboxStatus
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	Version      int64
}

// NewMessage builds a STARTED row for the order saga with payload encoded as JSON.
func NewMessage(kind Kind, sagaID string, payload any, domainStatus string, sagaStatus saga.Status) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s outbox payload: %w", kind, err)
	}
	return Message{
		ID:           uuid.New().String(),
		Kind:         kind,
		SagaID:       sagaID,
		Type:         saga.OrderSagaName,
		Payload:      body,
		DomainStatus: domainStatus,
		SagaStatus:   sagaStatus,
		OutboxStatus: saga.OutboxStarted,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Decode unmarshals the JSON payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decoding %s outbox payload %s: %w", m.Kind, m.ID, err)
	}
	return nil
}

// Processed stamps the row with a new saga status and the processing time.
func (m *Message) Processed(status saga.Status, domainStatus string) {
	now := time.Now().UTC()
	m.SagaStatus = status
	m.DomainStatus = domainStatus
	m.ProcessedAt = &now
}
