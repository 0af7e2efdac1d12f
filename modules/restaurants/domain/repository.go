package domain

import (
	"context"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// RestaurantInfo is what the restaurant currently offers.
type RestaurantInfo struct {
	ID       types.RestaurantID
	Active   bool
	Products []Product
}

type RestaurantRepository interface {
	// FindRestaurantInformation returns the restaurant with the requested
	// products it knows about.
	FindRestaurantInformation(ctx context.Context, id types.RestaurantID, productIDs []types.ProductID) (RestaurantInfo, bool, error)
}

type OrderApprovalRepository interface {
	Save(ctx context.Context, approval OrderApproval) error
}
