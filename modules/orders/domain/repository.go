package domain

import (
	"context"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// OrderRepository persists orders. Lookups return (nil, false, nil) when
// nothing matches.
type OrderRepository interface {
	// Save inserts a new order or updates an existing one if its version is
	// unchanged, then bumps the version. A lost race fails with ErrOrderConflict.
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id types.OrderID) (*Order, bool, error)
	FindByTrackingID(ctx context.Context, id types.TrackingID) (*Order, bool, error)
}

// CustomerRepository looks up the customers known to the order service.
type CustomerRepository interface {
	FindCustomer(ctx context.Context, id types.CustomerID) (Customer, bool, error)
}

// RestaurantRepository looks up a restaurant together with the given products.
type RestaurantRepository interface {
	FindRestaurant(ctx context.Context, id types.RestaurantID, productIDs []types.ProductID) (Restaurant, bool, error)
}
