package domain

import (
	"errors"
	"fmt"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrIllegalTransition  = errors.New("illegal order state transition")
	ErrOrderConflict      = fmt.Errorf("order: %w", transaction.ErrConflict)
)

// ValidationError is a business rule violation. Message is shown to the
// customer as is; the error unwraps to ErrInvalidOrder or ErrIllegalTransition.
type ValidationError struct {
	Message string
	kind    error
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.kind }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), kind: ErrInvalidOrder}
}

func illegalTransition(from Status, action string) error {
	return &ValidationError{
		Message: fmt.Sprintf("주문 상태가 %s 이므로 %s 작업을 수행할 수 없습니다.", from, action),
		kind:    ErrIllegalTransition,
	}
}

// IsValidationError reports whether err is a deterministic business rule
// violation that must not be retried.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NotFoundError carries the customer-facing message of a failed lookup and
// unwraps to one of the not-found sentinels.
type NotFoundError struct {
	Message string
	kind    error
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return e.kind }

func OrderNotFound(trackingID string) error {
	return &NotFoundError{Message: "주문이 존재하지 않습니다. tracking id: " + trackingID, kind: ErrOrderNotFound}
}

func CustomerNotFound(customerID string) error {
	return &NotFoundError{Message: "고객을 찾을 수 없습니다. customerId: " + customerID, kind: ErrCustomerNotFound}
}

func RestaurantNotFound(restaurantID string) error {
	return &NotFoundError{Message: "식당을 찾을 수 없습니다. restaurantId: " + restaurantID, kind: ErrRestaurantNotFound}
}
