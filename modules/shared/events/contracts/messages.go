// Package contracts defines the messages exchanged between the order, payment
// and restaurant services. Every message is keyed by its SagaID on the wire.
package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topics carrying the saga messages.
const (
	PaymentRequestTopic             = "payment-request"
	PaymentResponseTopic            = "payment-response"
	RestaurantApprovalRequestTopic  = "restaurant-approval-request"
	RestaurantApprovalResponseTopic = "restaurant-approval-response"
)

// PaymentOrderStatus is the order state a payment request is issued for.
type PaymentOrderStatus string

const (
	PaymentOrderPending   PaymentOrderStatus = "PENDING"
	PaymentOrderCancelled PaymentOrderStatus = "CANCELLED"
)

// PaymentStatus is the outcome reported by the payment service.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// RestaurantOrderStatus is the order state an approval request is issued for.
type RestaurantOrderStatus string

const RestaurantOrderPaid RestaurantOrderStatus = "PAID"

// OrderApprovalStatus is the outcome reported by the restaurant service.
type OrderApprovalStatus string

const (
	OrderApprovalApproved OrderApprovalStatus = "APPROVED"
	OrderApprovalRejected OrderApprovalStatus = "REJECTED"
)

// PaymentRequest asks the payment service to debit or refund an order.
type PaymentRequest struct {
	ID                 string             `json:"id"`
	SagaID             string             `json:"sagaId"`
	CustomerID         string             `json:"customerId"`
	OrderID            string             `json:"orderId"`
	Price              decimal.Decimal    `json:"price"`
	CreatedAt          time.Time          `json:"createdAt"`
	PaymentOrderStatus PaymentOrderStatus `json:"paymentOrderStatus"`
}

// PaymentResponse reports the payment outcome back to the order service.
type PaymentResponse struct {
	ID              string          `json:"id"`
	SagaID          string          `json:"sagaId"`
	PaymentID       string          `json:"paymentId"`
	CustomerID      string          `json:"customerId"`
	OrderID         string          `json:"orderId"`
	Price           decimal.Decimal `json:"price"`
	CreatedAt       time.Time       `json:"createdAt"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	FailureMessages []string        `json:"failureMessages"`
}

// ProductLine is one ordered product inside an approval request.
type ProductLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// RestaurantApprovalRequest asks the restaurant to accept a paid order.
type RestaurantApprovalRequest struct {
	ID                    string                `json:"id"`
	SagaID                string                `json:"sagaId"`
	RestaurantID          string                `json:"restaurantId"`
	OrderID               string                `json:"orderId"`
	RestaurantOrderStatus RestaurantOrderStatus `json:"restaurantOrderStatus"`
	Products              []ProductLine         `json:"products"`
	Price                 decimal.Decimal       `json:"price"`
	CreatedAt             time.Time             `json:"createdAt"`
}

// RestaurantApprovalResponse reports the restaurant's decision.
type RestaurantApprovalResponse struct {
	ID                  string              `json:"id"`
	SagaID              string              `json:"sagaId"`
	OrderID             string              `json:"orderId"`
	RestaurantID        string              `json:"restaurantId"`
	CreatedAt           time.Time           `json:"createdAt"`
	OrderApprovalStatus OrderApprovalStatus `json:"orderApprovalStatus"`
	FailureMessages     []string            `json:"failureMessages"`
}
