package domain

import (
	"github.com/google/uuid"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// CreditEntry is a customer's spendable balance.
type CreditEntry struct {
	ID                string
	CustomerID        types.CustomerID
	TotalCreditAmount types.Money
}

func (c *CreditEntry) addCreditAmount(amount types.Money) {
	c.TotalCreditAmount = c.TotalCreditAmount.Add(amount)
}

func (c *CreditEntry) subtractCreditAmount(amount types.Money) {
	c.TotalCreditAmount = c.TotalCreditAmount.Subtract(amount)
}

// TransactionType tells whether a history row added to or took from the balance.
type TransactionType string

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// CreditHistory is one immutable ledger row.
type CreditHistory struct {
	ID         string
	CustomerID types.CustomerID
	Amount     types.Money
	Type       TransactionType
}

func newCreditHistory(customerID types.CustomerID, amount types.Money, t TransactionType) CreditHistory {
	return CreditHistory{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Amount:     amount,
		Type:       t,
	}
}

// LedgerTotal sums the history rows of one transaction type.
func LedgerTotal(histories []CreditHistory, t TransactionType) types.Money {
	total := types.ZeroMoney
	for _, h := range histories {
		if h.Type == t {
			total = total.Add(h.Amount)
		}
	}
	return total
}

// LedgerBalance is the balance the ledger implies: credits minus debits.
func LedgerBalance(histories []CreditHistory) types.Money {
	return LedgerTotal(histories, Credit).Subtract(LedgerTotal(histories, Debit))
}
