package domain

import "errors"

var ErrRestaurantNotFound = errors.New("restaurant not found")

// NotFoundError carries the lookup failure message and unwraps to
// ErrRestaurantNotFound.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return ErrRestaurantNotFound }

func RestaurantNotFound(restaurantID string) error {
	return &NotFoundError{Message: "Id: " + restaurantID + " 식당 정보를 찾을 수 없습니다."}
}
