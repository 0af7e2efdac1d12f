package outbox

import (
	"context"
	"slices"
	"sync"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// MemoryStore implements Store in memory. Writes made inside a memtx
// transaction are undone when that transaction fails.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Message)}
}

func (s *MemoryStore) Insert(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[msg.ID]; exists {
		return ErrDuplicateMessage
	}
	for _, row := range s.rows {
		if sameIdentity(row, msg) {
			return ErrDuplicateMessage
		}
	}

	s.rows[msg.ID] = clone(msg)
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.rows, msg.ID)
	})
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rows[msg.ID]
	if !ok {
		return ErrMessageNotFound
	}
	if prev.Version != msg.Version {
		return ErrStaleWrite
	}
	for id, row := range s.rows {
		if id != msg.ID && sameIdentity(row, *msg) {
			return ErrDuplicateMessage
		}
	}

	msg.Version++
	s.rows[msg.ID] = clone(*msg)
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rows[prev.ID] = prev
	})
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.rows[id]
	if !ok {
		return Message{}, false, nil
	}
	return clone(m), true, nil
}

func (s *MemoryStore) FindBySagaID(ctx context.Context, kind Kind, sagaType, sagaID string, sagaStatuses ...saga.Status) (Message, bool, error) {
	return s.first(func(m Message) bool {
		return m.Kind == kind && m.Type == sagaType && m.SagaID == sagaID && matches(m.SagaStatus, sagaStatuses)
	})
}

func (s *MemoryStore) FindByDomainStatus(ctx context.Context, kind Kind, sagaType, sagaID, domainStatus string, outboxStatuses ...saga.OutboxStatus) (Message, bool, error) {
	return s.first(func(m Message) bool {
		return m.Kind == kind && m.Type == sagaType && m.SagaID == sagaID &&
			m.DomainStatus == domainStatus && matches(m.OutboxStatus, outboxStatuses)
	})
}

func (s *MemoryStore) FindByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Message
	for _, m := range s.rows {
		if m.Kind == kind && m.Type == sagaType && m.OutboxStatus == status && matches(m.SagaStatus, sagaStatuses) {
			out = append(out, clone(m))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *MemoryStore) DeleteByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []Message
	for id, m := range s.rows {
		if m.Kind == kind && m.Type == sagaType && m.OutboxStatus == status && matches(m.SagaStatus, sagaStatuses) {
			removed = append(removed, m)
			delete(s.rows, id)
		}
	}
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, m := range removed {
			s.rows[m.ID] = m
		}
	})
	return len(removed), nil
}

// All returns every row of kind, oldest first. Intended for tests and diagnostics.
func (s *MemoryStore) All(kind Kind) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Message
	for _, m := range s.rows {
		if m.Kind == kind {
			out = append(out, clone(m))
		}
	}
	sortByCreatedAt(out)
	return out
}

func (s *MemoryStore) first(pred func(Message) bool) (Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []Message
	for _, m := range s.rows {
		if pred(m) {
			found = append(found, m)
		}
	}
	if len(found) == 0 {
		return Message{}, false, nil
	}
	sortByCreatedAt(found)
	return clone(found[0]), true, nil
}

func sortByCreatedAt(msgs []Message) {
	slices.SortFunc(msgs, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func clone(m Message) Message {
	m.Payload = slices.Clone(m.Payload)
	if m.ProcessedAt != nil {
		t := *m.ProcessedAt
		m.ProcessedAt = &t
	}
	return m
}

var _ Store = (*MemoryStore)(nil)
