package domain

import "github.com/Jbiscode/MSA-Order-Service/modules/shared/types"

// Restaurant is the order service's read view of a restaurant and the
// products it currently offers.
type Restaurant struct {
	ID       types.RestaurantID
	Active   bool
	Products []Product
}

// Customer is the order service's read view of a customer.
type Customer struct {
	ID       types.CustomerID
	Username string
}
