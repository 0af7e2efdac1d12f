// Package types provides shared value objects and type definitions
// used across multiple modules (Shared Kernel pattern).
package types

import (
	"github.com/google/uuid"
)

func parseUUID(s string) (string, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", ErrInvalidID
	}
	return s, nil
}

// CustomerID identifies a customer across all services.
// Using a distinct type prevents mixing up different ID types.
type CustomerID struct {
	value string
}

func ParseCustomerID(s string) (CustomerID, error) {
	v, err := parseUUID(s)
	return CustomerID{value: v}, err
}

func (id CustomerID) String() string { return id.value }
func (id CustomerID) IsZero() bool   { return id.value == "" }

// RestaurantID identifies a restaurant.
type RestaurantID struct {
	value string
}

func ParseRestaurantID(s string) (RestaurantID, error) {
	v, err := parseUUID(s)
	return RestaurantID{value: v}, err
}

func (id RestaurantID) String() string { return id.value }
func (id RestaurantID) IsZero() bool   { return id.value == "" }

// ProductID identifies a product offered by a restaurant.
type ProductID struct {
	value string
}

func ParseProductID(s string) (ProductID, error) {
	v, err := parseUUID(s)
	return ProductID{value: v}, err
}

func (id ProductID) String() string { return id.value }
func (id ProductID) IsZero() bool   { return id.value == "" }

// OrderID represents a unique identifier for an order.
type OrderID struct {
	value string
}

func NewOrderID() OrderID {
	return OrderID{value: uuid.New().String()}
}

func ParseOrderID(s string) (OrderID, error) {
	v, err := parseUUID(s)
	return OrderID{value: v}, err
}

func (id OrderID) String() string { return id.value }
func (id OrderID) IsZero() bool   { return id.value == "" }

// TrackingID is the public-facing order correlation id.
type TrackingID struct {
	value string
}

func NewTrackingID() TrackingID {
	return TrackingID{value: uuid.New().String()}
}

func ParseTrackingID(s string) (TrackingID, error) {
	v, err := parseUUID(s)
	return TrackingID{value: v}, err
}

func (id TrackingID) String() string { return id.value }
func (id TrackingID) IsZero() bool   { return id.value == "" }

// PaymentID identifies a payment.
type PaymentID struct {
	value string
}

func NewPaymentID() PaymentID {
	return PaymentID{value: uuid.New().String()}
}

func ParsePaymentID(s string) (PaymentID, error) {
	v, err := parseUUID(s)
	return PaymentID{value: v}, err
}

func (id PaymentID) String() string { return id.value }
func (id PaymentID) IsZero() bool   { return id.value == "" }
