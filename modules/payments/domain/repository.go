package domain

import (
	"context"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

type PaymentRepository interface {
	// Save inserts or replaces the payment.
	Save(ctx context.Context, payment *Payment) error
	FindByOrderID(ctx context.Context, orderID types.OrderID) (*Payment, bool, error)
}

type CreditEntryRepository interface {
	Save(ctx context.Context, entry CreditEntry) error
	FindByCustomerID(ctx context.Context, customerID types.CustomerID) (CreditEntry, bool, error)
}

type CreditHistoryRepository interface {
	// Append adds a ledger row; rows are never changed afterwards.
	Append(ctx context.Context, history CreditHistory) error
	// FindByCustomerID returns the customer's ledger, oldest first, and
	// false if the customer has none.
	FindByCustomerID(ctx context.Context, customerID types.CustomerID) ([]CreditHistory, bool, error)
}
