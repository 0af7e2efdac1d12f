// Package domain contains the payment aggregate and the customer credit
// ledger it is charged against.
package domain

import (
	"time"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// PaymentStatus is the outcome of charging or refunding an order.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) String() string { return string(s) }

// Payment is the aggregate root of the payment service.
type Payment struct {
	id         types.PaymentID
	orderID    types.OrderID
	customerID types.CustomerID
	price      types.Money
	status     PaymentStatus
	createdAt  time.Time
}

// NewPayment builds a payment for an order; it gets an id on initialization.
func NewPayment(orderID types.OrderID, customerID types.CustomerID, price types.Money) *Payment {
	return &Payment{orderID: orderID, customerID: customerID, price: price}
}

// ReconstitutePayment rebuilds a payment from persistence.
func ReconstitutePayment(
	id types.PaymentID,
	orderID types.OrderID,
	customerID types.CustomerID,
	price types.Money,
	status PaymentStatus,
	createdAt time.Time,
) *Payment {
	return &Payment{
		id:         id,
		orderID:    orderID,
		customerID: customerID,
		price:      price,
		status:     status,
		createdAt:  createdAt,
	}
}

func (p *Payment) ID() types.PaymentID          { return p.id }
func (p *Payment) OrderID() types.OrderID       { return p.orderID }
func (p *Payment) CustomerID() types.CustomerID { return p.customerID }
func (p *Payment) Price() types.Money           { return p.price }
func (p *Payment) Status() PaymentStatus        { return p.status }
func (p *Payment) CreatedAt() time.Time         { return p.createdAt }

func (p *Payment) validate() []string {
	if !p.price.IsGreaterThanZero() {
		return []string{"가격은 0보다 커야 합니다."}
	}
	return nil
}

func (p *Payment) initialize() {
	p.id = types.NewPaymentID()
	p.createdAt = time.Now().UTC()
}

func (p *Payment) updateStatus(status PaymentStatus) {
	p.status = status
}
