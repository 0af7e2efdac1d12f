// Package persistence implements the payment service repositories.
package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

type paymentRow struct {
	id         types.PaymentID
	orderID    types.OrderID
	customerID types.CustomerID
	price      types.Money
	status     domain.PaymentStatus
	createdAt  time.Time
}

// InMemoryRepository keeps payments, credit entries and the credit ledger in
// maps. Writes are undone when the memtx transaction fails.
type InMemoryRepository struct {
	mu        sync.RWMutex
	payments  map[string]paymentRow
	credits   map[string]domain.CreditEntry
	histories map[string][]domain.CreditHistory
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		payments:  make(map[string]paymentRow),
		credits:   make(map[string]domain.CreditEntry),
		histories: make(map[string][]domain.CreditHistory),
	}
}

// Payments returns the payment repository view.
func (r *InMemoryRepository) Payments() domain.PaymentRepository { return (*paymentStore)(r) }

// Credits returns the credit entry repository view.
func (r *InMemoryRepository) Credits() domain.CreditEntryRepository { return (*creditStore)(r) }

// Histories returns the credit history repository view.
func (r *InMemoryRepository) Histories() domain.CreditHistoryRepository { return (*historyStore)(r) }

// Seed opens a customer account with an initial balance, recorded as one
// CREDIT ledger row.
func (r *InMemoryRepository) Seed(customerID types.CustomerID, balance types.Money) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := customerID.String()
	r.credits[key] = domain.CreditEntry{ID: customerID.String(), CustomerID: customerID, TotalCreditAmount: balance}
	r.histories[key] = []domain.CreditHistory{{
		ID:         customerID.String(),
		CustomerID: customerID,
		Amount:     balance,
		Type:       domain.Credit,
	}}
}

// Balance returns the stored credit entry amount of a customer.
func (r *InMemoryRepository) Balance(customerID types.CustomerID) types.Money {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.credits[customerID.String()].TotalCreditAmount
}

type paymentStore InMemoryRepository

func (s *paymentStore) Save(ctx context.Context, payment *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := payment.ID().String()
	prev, existed := s.payments[key]
	s.payments[key] = paymentRow{
		id:         payment.ID(),
		orderID:    payment.OrderID(),
		customerID: payment.CustomerID(),
		price:      payment.Price(),
		status:     payment.Status(),
		createdAt:  payment.CreatedAt(),
	}
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.payments[key] = prev
		} else {
			delete(s.payments, key)
		}
	})
	return nil
}

// FindByOrderID returns the newest payment of the order.
func (s *paymentStore) FindByOrderID(ctx context.Context, orderID types.OrderID) (*domain.Payment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *paymentRow
	for _, row := range s.payments {
		if row.orderID != orderID {
			continue
		}
		if found == nil || row.createdAt.After(found.createdAt) {
			found = &row
		}
	}
	if found == nil {
		return nil, false, nil
	}
	return domain.ReconstitutePayment(found.id, found.orderID, found.customerID, found.price, found.status, found.createdAt), true, nil
}

type creditStore InMemoryRepository

func (s *creditStore) Save(ctx context.Context, entry domain.CreditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entry.CustomerID.String()
	prev, existed := s.credits[key]
	s.credits[key] = entry
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.credits[key] = prev
		} else {
			delete(s.credits, key)
		}
	})
	return nil
}

func (s *creditStore) FindByCustomerID(ctx context.Context, customerID types.CustomerID) (domain.CreditEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.credits[customerID.String()]
	return entry, ok, nil
}

type historyStore InMemoryRepository

func (s *historyStore) Append(ctx context.Context, history domain.CreditHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := history.CustomerID.String()
	n := len(s.histories[key])
	s.histories[key] = append(s.histories[key], history)
	memtx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.histories[key] = s.histories[key][:n]
	})
	return nil
}

func (s *historyStore) FindByCustomerID(ctx context.Context, customerID types.CustomerID) ([]domain.CreditHistory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.histories[customerID.String()]
	if !ok || len(rows) == 0 {
		return nil, false, nil
	}
	return slices.Clone(rows), true, nil
}
