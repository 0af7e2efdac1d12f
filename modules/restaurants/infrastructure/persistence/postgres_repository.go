package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/postgres"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// Schema creates the restaurant service tables.
const Schema = `
CREATE TABLE IF NOT EXISTS restaurants (
    id     UUID PRIMARY KEY,
    name   TEXT NOT NULL,
    active BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id        UUID PRIMARY KEY,
    name      TEXT NOT NULL,
    price     NUMERIC(10,2) NOT NULL,
    available BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS restaurant_products (
    restaurant_id UUID NOT NULL REFERENCES restaurants (id),
    product_id    UUID NOT NULL REFERENCES products (id),
    PRIMARY KEY (restaurant_id, product_id)
);

CREATE TABLE IF NOT EXISTS order_approval (
    id            UUID PRIMARY KEY,
    restaurant_id UUID NOT NULL,
    order_id      UUID NOT NULL,
    status        TEXT NOT NULL
);
`

// PostgresRepository implements the restaurant repositories with pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindRestaurantInformation(ctx context.Context, id types.RestaurantID, productIDs []types.ProductID) (domain.RestaurantInfo, bool, error) {
	ids := make([]string, len(productIDs))
	for i, p := range productIDs {
		ids[i] = p.String()
	}

	rows, err := postgres.Conn(ctx, r.pool).Query(ctx,
		`SELECT r.active, p.id::text, p.name, p.price::text, p.available
		   FROM restaurants r
		   LEFT JOIN restaurant_products rp ON rp.restaurant_id = r.id
		   LEFT JOIN products p ON p.id = rp.product_id AND p.id = ANY($2::uuid[])
		  WHERE r.id = $1`,
		id.String(), ids,
	)
	if err != nil {
		return domain.RestaurantInfo{}, false, fmt.Errorf("find restaurant: %w", err)
	}
	defer rows.Close()

	info := domain.RestaurantInfo{ID: id}
	found := false
	for rows.Next() {
		var (
			productID, name, price *string
			available              *bool
		)
		if err := rows.Scan(&info.Active, &productID, &name, &price, &available); err != nil {
			return domain.RestaurantInfo{}, false, fmt.Errorf("scan restaurant: %w", err)
		}
		found = true
		if productID == nil {
			continue
		}
		product, err := toProduct(*productID, *name, *price, *available)
		if err != nil {
			return domain.RestaurantInfo{}, false, err
		}
		info.Products = append(info.Products, product)
	}
	if err := rows.Err(); err != nil {
		return domain.RestaurantInfo{}, false, fmt.Errorf("iterate restaurant: %w", err)
	}
	return info, found, nil
}

func toProduct(id, name, price string, available bool) (domain.Product, error) {
	productID, err := types.ParseProductID(id)
	if err != nil {
		return domain.Product{}, err
	}
	amount, err := types.ParseMoney(price)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{ID: productID, Name: name, Price: amount, Available: available}, nil
}

func (r *PostgresRepository) Save(ctx context.Context, approval domain.OrderApproval) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO order_approval (id, restaurant_id, order_id, status) VALUES ($1, $2, $3, $4)`,
		approval.ID, approval.RestaurantID.String(), approval.OrderID.String(), approval.Status.String(),
	)
	if err != nil {
		return fmt.Errorf("save order approval: %w", err)
	}
	return nil
}

var (
	_ domain.RestaurantRepository    = (*PostgresRepository)(nil)
	_ domain.OrderApprovalRepository = (*PostgresRepository)(nil)
)
