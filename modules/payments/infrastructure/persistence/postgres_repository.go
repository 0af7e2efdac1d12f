package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/postgres"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// Schema creates the payment service tables.
const Schema = `
CREATE TABLE IF NOT EXISTS payments (
    id          UUID PRIMARY KEY,
    customer_id UUID NOT NULL,
    order_id    UUID NOT NULL,
    price       NUMERIC(10,2) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    status      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS payments_by_order ON payments (order_id, created_at);

CREATE TABLE IF NOT EXISTS credit_entry (
    id                  UUID PRIMARY KEY,
    customer_id         UUID NOT NULL UNIQUE,
    total_credit_amount NUMERIC(10,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS credit_history (
    id          UUID PRIMARY KEY,
    customer_id UUID NOT NULL,
    amount      NUMERIC(10,2) NOT NULL,
    type        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS credit_history_by_customer ON credit_history (customer_id, created_at);
`

// PostgresRepository implements the payment repositories with pgx.
// Amounts travel as text so NUMERIC values keep their exact scale.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Payments() domain.PaymentRepository        { return (*pgPayments)(r) }
func (r *PostgresRepository) Credits() domain.CreditEntryRepository     { return (*pgCredits)(r) }
func (r *PostgresRepository) Histories() domain.CreditHistoryRepository { return (*pgHistories)(r) }

type pgPayments PostgresRepository

func (r *pgPayments) Save(ctx context.Context, payment *domain.Payment) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO payments (id, customer_id, order_id, price, created_at, status)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		payment.ID().String(), payment.CustomerID().String(), payment.OrderID().String(),
		payment.Price().String(), payment.CreatedAt(), payment.Status().String(),
	)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (r *pgPayments) FindByOrderID(ctx context.Context, orderID types.OrderID) (*domain.Payment, bool, error) {
	var (
		id, customer, order, price, status string
		createdAt                          time.Time
	)
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id::text, customer_id::text, order_id::text, price::text, created_at, status
		   FROM payments WHERE order_id = $1
		  ORDER BY created_at DESC LIMIT 1`,
		orderID.String(),
	).Scan(&id, &customer, &order, &price, &createdAt, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find payment: %w", err)
	}

	paymentID, err := types.ParsePaymentID(id)
	if err != nil {
		return nil, false, err
	}
	customerID, err := types.ParseCustomerID(customer)
	if err != nil {
		return nil, false, err
	}
	parsedOrder, err := types.ParseOrderID(order)
	if err != nil {
		return nil, false, err
	}
	amount, err := types.ParseMoney(price)
	if err != nil {
		return nil, false, err
	}
	return domain.ReconstitutePayment(paymentID, parsedOrder, customerID, amount, domain.PaymentStatus(status), createdAt.UTC()), true, nil
}

type pgCredits PostgresRepository

func (r *pgCredits) Save(ctx context.Context, entry domain.CreditEntry) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO credit_entry (id, customer_id, total_credit_amount)
		 VALUES ($1, $2, $3::numeric)
		 ON CONFLICT (customer_id) DO UPDATE SET total_credit_amount = EXCLUDED.total_credit_amount`,
		entry.ID, entry.CustomerID.String(), entry.TotalCreditAmount.String(),
	)
	if err != nil {
		return fmt.Errorf("save credit entry: %w", err)
	}
	return nil
}

// FindByCustomerID locks the entry row for the rest of the transaction.
func (r *pgCredits) FindByCustomerID(ctx context.Context, customerID types.CustomerID) (domain.CreditEntry, bool, error) {
	var id, amount string
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id::text, total_credit_amount::text FROM credit_entry WHERE customer_id = $1 FOR UPDATE`,
		customerID.String(),
	).Scan(&id, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CreditEntry{}, false, nil
	}
	if err != nil {
		return domain.CreditEntry{}, false, fmt.Errorf("find credit entry: %w", err)
	}
	total, err := types.ParseMoney(amount)
	if err != nil {
		return domain.CreditEntry{}, false, err
	}
	return domain.CreditEntry{ID: id, CustomerID: customerID, TotalCreditAmount: total}, true, nil
}

type pgHistories PostgresRepository

func (r *pgHistories) Append(ctx context.Context, history domain.CreditHistory) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO credit_history (id, customer_id, amount, type) VALUES ($1, $2, $3::numeric, $4)`,
		history.ID, history.CustomerID.String(), history.Amount.String(), string(history.Type),
	)
	if err != nil {
		return fmt.Errorf("append credit history: %w", err)
	}
	return nil
}

func (r *pgHistories) FindByCustomerID(ctx context.Context, customerID types.CustomerID) ([]domain.CreditHistory, bool, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx,
		`SELECT id::text, amount::text, type FROM credit_history WHERE customer_id = $1 ORDER BY created_at, id`,
		customerID.String(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("find credit history: %w", err)
	}
	histories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CreditHistory, error) {
		var id, amount, kind string
		if err := row.Scan(&id, &amount, &kind); err != nil {
			return domain.CreditHistory{}, err
		}
		money, err := types.ParseMoney(amount)
		if err != nil {
			return domain.CreditHistory{}, err
		}
		return domain.CreditHistory{ID: id, CustomerID: customerID, Amount: money, Type: domain.TransactionType(kind)}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("scan credit history: %w", err)
	}
	return histories, len(histories) > 0, nil
}
