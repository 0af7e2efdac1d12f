package domain

import "errors"

var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrCreditEntryNotFound   = errors.New("credit entry not found")
	ErrCreditHistoryNotFound = errors.New("credit history not found")
)
