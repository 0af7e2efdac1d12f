// Package domain contains the order aggregate, its state machine and the
// rules checked before an order enters the saga.
package domain

import (
	"slices"
	"time"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// StreetAddress is the delivery address of an order.
type StreetAddress struct {
	ID         string
	Street     string
	PostalCode string
	City       string
}

// Product is an ordered product. Name and Price are overwritten with the
// restaurant's confirmed values before validation.
type Product struct {
	ID    types.ProductID
	Name  string
	Price types.Money
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID       int64
	Product  Product
	Quantity int
	Price    types.Money
	Subtotal types.Money
}

func (i OrderItem) isPriceValid() bool {
	return i.Price.IsGreaterThanZero() &&
		i.Price.Equals(i.Product.Price) &&
		i.Price.Multiply(i.Quantity).Equals(i.Subtotal)
}

// Order is the aggregate root of the order service.
type Order struct {
	id              types.OrderID
	customerID      types.CustomerID
	restaurantID    types.RestaurantID
	address         StreetAddress
	price           types.Money
	items           []OrderItem
	trackingID      types.TrackingID
	status          Status
	failureMessages []string
	version         int64
	createdAt       time.Time
}

// NewOrderParams holds the client supplied fields of a new order.
type NewOrderParams struct {
	CustomerID   types.CustomerID
	RestaurantID types.RestaurantID
	Address      StreetAddress
	Price        types.Money
	Items        []OrderItem
}

// NewOrder builds an order that has not been validated or initialized yet.
func NewOrder(p NewOrderParams) *Order {
	return &Order{
		customerID:   p.CustomerID,
		restaurantID: p.RestaurantID,
		address:      p.Address,
		price:        p.Price,
		items:        slices.Clone(p.Items),
	}
}

// Snapshot is the persisted form of an order.
type Snapshot struct {
	ID              types.OrderID
	CustomerID      types.CustomerID
	RestaurantID    types.RestaurantID
	Address         StreetAddress
	Price           types.Money
	Items           []OrderItem
	TrackingID      types.TrackingID
	Status          Status
	FailureMessages []string
	Version         int64
	CreatedAt       time.Time
}

// Reconstitute rebuilds an order from persistence.
func Reconstitute(s Snapshot) *Order {
	return &Order{
		id:              s.ID,
		customerID:      s.CustomerID,
		restaurantID:    s.RestaurantID,
		address:         s.Address,
		price:           s.Price,
		items:           slices.Clone(s.Items),
		trackingID:      s.TrackingID,
		status:          s.Status,
		failureMessages: slices.Clone(s.FailureMessages),
		version:         s.Version,
		createdAt:       s.CreatedAt,
	}
}

func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:              o.id,
		CustomerID:      o.customerID,
		RestaurantID:    o.restaurantID,
		Address:         o.address,
		Price:           o.price,
		Items:           slices.Clone(o.items),
		TrackingID:      o.trackingID,
		Status:          o.status,
		FailureMessages: slices.Clone(o.failureMessages),
		Version:         o.version,
		CreatedAt:       o.createdAt,
	}
}

func (o *Order) ID() types.OrderID                { return o.id }
func (o *Order) CustomerID() types.CustomerID     { return o.customerID }
func (o *Order) RestaurantID() types.RestaurantID { return o.restaurantID }
func (o *Order) Address() StreetAddress           { return o.address }
func (o *Order) Price() types.Money               { return o.price }
func (o *Order) Items() []OrderItem               { return o.items }
func (o *Order) TrackingID() types.TrackingID     { return o.trackingID }
func (o *Order) Status() Status                   { return o.status }
func (o *Order) FailureMessages() []string        { return slices.Clone(o.failureMessages) }
func (o *Order) Version() int64                   { return o.version }
func (o *Order) CreatedAt() time.Time             { return o.createdAt }
func (o *Order) SetVersion(v int64)               { o.version = v }

// Validate checks the initial state and the price invariants of a new order.
func (o *Order) Validate() error {
	if !o.id.IsZero() || o.status != "" {
		return invalid("주문이 초기화할 수 있는 상태가 아닙니다.")
	}
	if !o.price.IsGreaterThanZero() {
		return invalid("총 가격은 0보다 커야 합니다.")
	}

	itemsTotal := types.ZeroMoney
	for _, item := range o.items {
		if !item.isPriceValid() {
			return invalid("주문 상품 가격: %s 과 상품: %s 가 일치하지 않습니다.", item.Price, item.Product.ID)
		}
		itemsTotal = itemsTotal.Add(item.Subtotal)
	}
	if !o.price.Equals(itemsTotal) {
		return invalid("종합 가격: %s 과 아이템 가격: %s 가 일치하지 않습니다.", o.price, itemsTotal)
	}
	return nil
}

// Initialize assigns identities and puts the order into PENDING.
func (o *Order) Initialize() {
	o.id = types.NewOrderID()
	o.trackingID = types.NewTrackingID()
	o.status = StatusPending
	o.createdAt = time.Now().UTC()
	for i := range o.items {
		o.items[i].ID = int64(i + 1)
	}
}

// ApplyConfirmedProducts overwrites product names and prices with the
// restaurant's catalogue.
func (o *Order) ApplyConfirmedProducts(catalogue []Product) {
	byID := make(map[types.ProductID]Product, len(catalogue))
	for _, p := range catalogue {
		byID[p.ID] = p
	}
	for i := range o.items {
		if p, ok := byID[o.items[i].Product.ID]; ok {
			o.items[i].Product.Name = p.Name
			o.items[i].Product.Price = p.Price
		}
	}
}

func (o *Order) Pay() error {
	if o.status != StatusPending {
		return illegalTransition(o.status, "결제")
	}
	o.status = StatusPaid
	return nil
}

func (o *Order) Approve() error {
	if o.status != StatusPaid {
		return illegalTransition(o.status, "승인")
	}
	o.status = StatusApproved
	return nil
}

// InitCancel starts compensating an order whose payment must be refunded.
func (o *Order) InitCancel(failureMessages []string) error {
	if o.status != StatusPending && o.status != StatusPaid {
		return illegalTransition(o.status, "취소 시작")
	}
	o.status = StatusCancelling
	o.appendFailureMessages(failureMessages)
	return nil
}

func (o *Order) Cancel(failureMessages []string) error {
	if o.status != StatusPending && o.status != StatusCancelling {
		return illegalTransition(o.status, "취소")
	}
	o.status = StatusCancelled
	o.appendFailureMessages(failureMessages)
	return nil
}

func (o *Order) appendFailureMessages(msgs []string) {
	for _, m := range msgs {
		if m != "" {
			o.failureMessages = append(o.failureMessages, m)
		}
	}
}
