package persistence

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	platformspanner "github.com/Jbiscode/MSA-Order-Service/internal/platform/spanner"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// SpannerCatalog reads the customer and restaurant projections the order
// service keeps of data owned elsewhere:
//
//	CREATE TABLE Customers (
//	  CustomerID STRING(36) NOT NULL,
//	  Username STRING(MAX) NOT NULL,
//	) PRIMARY KEY (CustomerID);
//
//	CREATE TABLE RestaurantProducts (
//	  RestaurantID STRING(36) NOT NULL,
//	  ProductID STRING(36) NOT NULL,
//	  RestaurantActive BOOL NOT NULL,
//	  ProductName STRING(MAX) NOT NULL,
//	  ProductPrice NUMERIC NOT NULL,
//	) PRIMARY KEY (RestaurantID, ProductID);
type SpannerCatalog struct {
	client *spanner.Client
}

func NewSpannerCatalog(client *spanner.Client) *SpannerCatalog {
	return &SpannerCatalog{client: client}
}

func (c *SpannerCatalog) reader(ctx context.Context) platformspanner.ReadTransaction {
	if reader, ok := platformspanner.ReadTransactionFromContext(ctx); ok {
		return reader
	}
	return c.client.Single()
}

func (c *SpannerCatalog) FindCustomer(ctx context.Context, id types.CustomerID) (domain.Customer, bool, error) {
	row, err := c.reader(ctx).ReadRow(ctx, "Customers", spanner.Key{id.String()}, []string{"Username"})
	if err != nil {
		if platformspanner.IsNotFound(err) {
			return domain.Customer{}, false, nil
		}
		return domain.Customer{}, false, fmt.Errorf("failed to read customer: %w", err)
	}
	customer := domain.Customer{ID: id}
	if err := row.Columns(&customer.Username); err != nil {
		return domain.Customer{}, false, fmt.Errorf("failed to scan customer: %w", err)
	}
	return customer, true, nil
}

func (c *SpannerCatalog) FindRestaurant(ctx context.Context, id types.RestaurantID, productIDs []types.ProductID) (domain.Restaurant, bool, error) {
	ids := make([]string, len(productIDs))
	for i, pid := range productIDs {
		ids[i] = pid.String()
	}
	stmt := spanner.Statement{
		SQL: `SELECT ProductID, RestaurantActive, ProductName, ProductPrice
		      FROM RestaurantProducts
		      WHERE RestaurantID = @restaurantID AND ProductID IN UNNEST(@productIDs)`,
		Params: map[string]any{
			"restaurantID": id.String(),
			"productIDs":   ids,
		},
	}

	iter := c.reader(ctx).Query(ctx, stmt)
	defer iter.Stop()

	restaurant := domain.Restaurant{ID: id}
	found := false
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.Restaurant{}, false, fmt.Errorf("failed to query restaurant: %w", err)
		}

		var (
			productID, name string
			active          bool
			price           big.Rat
		)
		if err := row.Columns(&productID, &active, &name, &price); err != nil {
			return domain.Restaurant{}, false, fmt.Errorf("failed to scan restaurant product: %w", err)
		}
		p := domain.Product{Name: name}
		if p.ID, err = types.ParseProductID(productID); err != nil {
			return domain.Restaurant{}, false, err
		}
		if p.Price, err = moneyFromRat(&price); err != nil {
			return domain.Restaurant{}, false, err
		}
		found = true
		restaurant.Active = active
		restaurant.Products = append(restaurant.Products, p)
	}
	return restaurant, found, nil
}

var (
	_ domain.CustomerRepository   = (*SpannerCatalog)(nil)
	_ domain.RestaurantRepository = (*SpannerCatalog)(nil)
)
