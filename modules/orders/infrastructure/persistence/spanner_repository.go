package persistence

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	platformspanner "github.com/Jbiscode/MSA-Order-Service/internal/platform/spanner"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// SpannerRepository stores orders in Spanner:
//
//	CREATE TABLE Orders (
//	  OrderID STRING(36) NOT NULL,
//	  CustomerID STRING(36) NOT NULL,
//	  RestaurantID STRING(36) NOT NULL,
//	  TrackingID STRING(36) NOT NULL,
//	  Price NUMERIC NOT NULL,
//	  Status STRING(16) NOT NULL,
//	  FailureMessages ARRAY<STRING(MAX)>,
//	  AddressID STRING(36) NOT NULL,
//	  Street STRING(50) NOT NULL,
//	  PostalCode STRING(10) NOT NULL,
//	  City STRING(50) NOT NULL,
//	  Version INT64 NOT NULL,
//	  CreatedAt TIMESTAMP NOT NULL,
//	) PRIMARY KEY (OrderID);
//	CREATE UNIQUE INDEX OrdersByTrackingID ON Orders(TrackingID);
//
//	CREATE TABLE OrderItems (
//	  OrderID STRING(36) NOT NULL,
//	  ItemID INT64 NOT NULL,
//	  ProductID STRING(36) NOT NULL,
//	  Quantity INT64 NOT NULL,
//	  Price NUMERIC NOT NULL,
//	  Subtotal NUMERIC NOT NULL,
//	) PRIMARY KEY (OrderID, ItemID),
//	  INTERLEAVE IN PARENT Orders ON DELETE CASCADE;
type SpannerRepository struct {
	client *spanner.Client
}

func NewSpannerRepository(client *spanner.Client) *SpannerRepository {
	return &SpannerRepository{client: client}
}

var orderColumns = []string{
	"OrderID", "CustomerID", "RestaurantID", "TrackingID", "Price", "Status", "FailureMessages",
	"AddressID", "Street", "PostalCode", "City", "Version", "CreatedAt",
}

// Save uses the transaction in ctx if available, otherwise runs its own.
func (r *SpannerRepository) Save(ctx context.Context, order *domain.Order) error {
	if txn, ok := platformspanner.ReadWriteTxFromContext(ctx); ok {
		return r.saveWithTx(ctx, txn, order)
	}

	_, err := r.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		return r.saveWithTx(ctx, txn, order)
	})
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (r *SpannerRepository) saveWithTx(ctx context.Context, tx *spanner.ReadWriteTransaction, order *domain.Order) error {
	orderID := order.ID().String()

	row, err := tx.ReadRow(ctx, "Orders", spanner.Key{orderID}, []string{"Version"})
	exists := err == nil
	if err != nil && !platformspanner.IsNotFound(err) {
		return fmt.Errorf("failed to read order version: %w", err)
	}
	if exists {
		var stored int64
		if err := row.Columns(&stored); err != nil {
			return fmt.Errorf("failed to scan order version: %w", err)
		}
		if stored != order.Version() {
			return domain.ErrOrderConflict
		}
	} else if order.Version() != 0 {
		return domain.ErrOrderConflict
	}

	next := order.Version() + 1
	addr := order.Address()
	mutations := []*spanner.Mutation{
		spanner.InsertOrUpdate("Orders", orderColumns, []any{
			orderID,
			order.CustomerID().String(),
			order.RestaurantID().String(),
			order.TrackingID().String(),
			order.Price().Amount().Rat(),
			order.Status().String(),
			order.FailureMessages(),
			addr.ID,
			addr.Street,
			addr.PostalCode,
			addr.City,
			next,
			order.CreatedAt(),
		}),
	}

	// Items never change after creation.
	if !exists {
		for _, item := range order.Items() {
			mutations = append(mutations, spanner.Insert("OrderItems",
				[]string{"OrderID", "ItemID", "ProductID", "Quantity", "Price", "Subtotal"},
				[]any{
					orderID,
					item.ID,
					item.Product.ID.String(),
					int64(item.Quantity),
					item.Price.Amount().Rat(),
					item.Subtotal.Amount().Rat(),
				}))
		}
	}

	if err := tx.BufferWrite(mutations); err != nil {
		return err
	}
	order.SetVersion(next)
	return nil
}

func (r *SpannerRepository) reader(ctx context.Context) (platformspanner.ReadTransaction, func()) {
	if reader, ok := platformspanner.ReadTransactionFromContext(ctx); ok {
		return reader, func() {}
	}
	// Orders + OrderItems need one snapshot; Single() is only for one read.
	roTx := r.client.ReadOnlyTransaction()
	return roTx, roTx.Close
}

func (r *SpannerRepository) FindByID(ctx context.Context, id types.OrderID) (*domain.Order, bool, error) {
	reader, done := r.reader(ctx)
	defer done()

	row, err := reader.ReadRow(ctx, "Orders", spanner.Key{id.String()}, orderColumns)
	if err != nil {
		if platformspanner.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read order: %w", err)
	}
	return r.load(ctx, reader, row)
}

func (r *SpannerRepository) FindByTrackingID(ctx context.Context, id types.TrackingID) (*domain.Order, bool, error) {
	reader, done := r.reader(ctx)
	defer done()

	row, err := reader.ReadRowUsingIndex(ctx, "Orders", "OrdersByTrackingID", spanner.Key{id.String()}, []string{"OrderID"})
	if err != nil {
		if platformspanner.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read order by tracking id: %w", err)
	}
	var orderID string
	if err := row.Columns(&orderID); err != nil {
		return nil, false, fmt.Errorf("failed to scan order id: %w", err)
	}

	row, err = reader.ReadRow(ctx, "Orders", spanner.Key{orderID}, orderColumns)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read order: %w", err)
	}
	return r.load(ctx, reader, row)
}

func (r *SpannerRepository) load(ctx context.Context, reader platformspanner.ReadTransaction, row *spanner.Row) (*domain.Order, bool, error) {
	var (
		orderID, customerID, restaurantID, trackingID, status string
		addressID, street, postalCode, city                   string
		price                                                 big.Rat
		failureMessages                                       []string
		version                                               int64
		createdAt                                             time.Time
	)
	if err := row.Columns(&orderID, &customerID, &restaurantID, &trackingID, &price, &status, &failureMessages,
		&addressID, &street, &postalCode, &city, &version, &createdAt); err != nil {
		return nil, false, fmt.Errorf("failed to scan order: %w", err)
	}

	items, err := r.readOrderItems(ctx, reader, orderID)
	if err != nil {
		return nil, false, err
	}

	snap := domain.Snapshot{
		Address:         domain.StreetAddress{ID: addressID, Street: street, PostalCode: postalCode, City: city},
		Items:           items,
		Status:          domain.Status(status),
		FailureMessages: failureMessages,
		Version:         version,
		CreatedAt:       createdAt,
	}
	if snap.ID, err = types.ParseOrderID(orderID); err != nil {
		return nil, false, err
	}
	if snap.CustomerID, err = types.ParseCustomerID(customerID); err != nil {
		return nil, false, err
	}
	if snap.RestaurantID, err = types.ParseRestaurantID(restaurantID); err != nil {
		return nil, false, err
	}
	if snap.TrackingID, err = types.ParseTrackingID(trackingID); err != nil {
		return nil, false, err
	}
	if snap.Price, err = moneyFromRat(&price); err != nil {
		return nil, false, err
	}
	return domain.Reconstitute(snap), true, nil
}

func (r *SpannerRepository) readOrderItems(ctx context.Context, reader platformspanner.ReadTransaction, orderID string) ([]domain.OrderItem, error) {
	iter := reader.Read(ctx, "OrderItems",
		spanner.Key{orderID}.AsPrefix(),
		[]string{"ItemID", "ProductID", "Quantity", "Price", "Subtotal"},
	)
	defer iter.Stop()

	var items []domain.OrderItem
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read order items: %w", err)
		}

		var (
			itemID, quantity int64
			productID        string
			price, subtotal  big.Rat
		)
		if err := row.Columns(&itemID, &productID, &quantity, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item := domain.OrderItem{ID: itemID, Quantity: int(quantity)}
		if item.Product.ID, err = types.ParseProductID(productID); err != nil {
			return nil, err
		}
		if item.Price, err = moneyFromRat(&price); err != nil {
			return nil, err
		}
		if item.Subtotal, err = moneyFromRat(&subtotal); err != nil {
			return nil, err
		}
		item.Product.Price = item.Price
		items = append(items, item)
	}
	return items, nil
}

func moneyFromRat(r *big.Rat) (types.Money, error) {
	return types.ParseMoney(r.FloatString(2))
}

var _ domain.OrderRepository = (*SpannerRepository)(nil)
