// Package steps implements the order service's saga steps. Every step runs
// in one local transaction that checks the outbox for an earlier delivery,
// applies the domain transition, saves the order and writes the next
// outbox row.
package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// SagaStatusFor maps an order status to the saga progress it represents.
// A cancelled order maps to COMPENSATED; callers record FAILED instead
// when nothing had been charged.
func SagaStatusFor(status domain.Status) saga.Status {
	switch status {
	case domain.StatusPaid:
		return saga.StatusProcessing
	case domain.StatusApproved:
		return saga.StatusSucceeded
	case domain.StatusCancelling:
		return saga.StatusCompensating
	case domain.StatusCancelled:
		return saga.StatusCompensated
	default:
		return saga.StatusStarted
	}
}

// PaymentRequest builds the payload asking the payment service to charge
// (PENDING) or refund (CANCELLED) the order.
func PaymentRequest(sagaID string, order *domain.Order, status contracts.PaymentOrderStatus) contracts.PaymentRequest {
	return contracts.PaymentRequest{
		ID:                 uuid.New().String(),
		SagaID:             sagaID,
		CustomerID:         order.CustomerID().String(),
		OrderID:            order.ID().String(),
		Price:              order.Price().Amount(),
		CreatedAt:          time.Now().UTC(),
		PaymentOrderStatus: status,
	}
}

// ApprovalRequest builds the payload asking the restaurant to accept a paid order.
func ApprovalRequest(sagaID string, order *domain.Order) contracts.RestaurantApprovalRequest {
	products := make([]contracts.ProductLine, len(order.Items()))
	for i, item := range order.Items() {
		products[i] = contracts.ProductLine{ID: item.Product.ID.String(), Quantity: item.Quantity}
	}
	return contracts.RestaurantApprovalRequest{
		ID:                    uuid.New().String(),
		SagaID:                sagaID,
		RestaurantID:          order.RestaurantID().String(),
		OrderID:               order.ID().String(),
		RestaurantOrderStatus: contracts.RestaurantOrderPaid,
		Products:              products,
		Price:                 order.Price().Amount(),
		CreatedAt:             time.Now().UTC(),
	}
}
