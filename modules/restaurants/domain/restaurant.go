// Package domain decides whether a restaurant accepts a paid order.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// OrderStatus is the order state the approval request was issued for.
type OrderStatus string

const OrderPaid OrderStatus = "PAID"

// ApprovalStatus is the restaurant's decision.
type ApprovalStatus string

const (
	Approved ApprovalStatus = "APPROVED"
	Rejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) String() string { return string(s) }

// Product is one ordered line, overlaid with what the restaurant confirms.
type Product struct {
	ID        types.ProductID
	Name      string
	Price     types.Money
	Quantity  int
	Available bool
}

// Confirm replaces the requested product data with the restaurant's own.
func (p *Product) Confirm(name string, price types.Money, available bool) {
	p.Name = name
	p.Price = price
	p.Available = available
}

// OrderDetail is the order as the restaurant sees it.
type OrderDetail struct {
	ID          types.OrderID
	Status      OrderStatus
	Products    []Product
	TotalAmount types.Money
}

// OrderApproval records a decision about one order.
type OrderApproval struct {
	ID           string
	RestaurantID types.RestaurantID
	OrderID      types.OrderID
	Status       ApprovalStatus
}

// Restaurant is the aggregate root: a restaurant evaluating one order.
type Restaurant struct {
	ID          types.RestaurantID
	Active      bool
	OrderDetail OrderDetail
	approval    *OrderApproval
}

// Approval returns the decision built by ConstructOrderApproval.
func (r *Restaurant) Approval() *OrderApproval { return r.approval }

// ValidateOrder returns every rule the order breaks.
func (r *Restaurant) ValidateOrder() []string {
	var failures []string
	if r.OrderDetail.Status != OrderPaid {
		failures = append(failures, fmt.Sprintf("orderId: %s 결제가 완료되지 않았습니다.", r.OrderDetail.ID))
	}

	total := types.ZeroMoney
	for _, p := range r.OrderDetail.Products {
		if !p.Available {
			failures = append(failures, fmt.Sprintf("productId: %s 상품이 현재 구매불가입니다.", p.ID))
		}
		total = total.Add(p.Price.Multiply(p.Quantity))
	}

	if !total.Equals(r.OrderDetail.TotalAmount) {
		failures = append(failures, fmt.Sprintf("orderId: %s 결제금액이 일치하지 않습니다.", r.OrderDetail.ID))
	}
	return failures
}

// ConstructOrderApproval records the decision for the current order.
func (r *Restaurant) ConstructOrderApproval(status ApprovalStatus) {
	r.approval = &OrderApproval{
		ID:           uuid.New().String(),
		RestaurantID: r.ID,
		OrderID:      r.OrderDetail.ID,
		Status:       status,
	}
}
