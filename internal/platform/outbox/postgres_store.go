package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/postgres"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// PostgresSchema creates the outbox table used by PostgresStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS outbox (
    id            UUID PRIMARY KEY,
    kind          TEXT NOT NULL,
    saga_id       UUID NOT NULL,
    type          TEXT NOT NULL,
    payload       JSONB NOT NULL,
    domain_status TEXT NOT NULL,
    saga_status   TEXT NOT NULL,
    outbox_status TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    processed_at  TIMESTAMPTZ,
    version       BIGINT NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS outbox_saga_identity
    ON outbox (kind, type, saga_id, saga_status, domain_status);
CREATE INDEX IF NOT EXISTS outbox_by_saga_status
    ON outbox (kind, type, saga_id, saga_status);
CREATE INDEX IF NOT EXISTS outbox_by_outbox_status
    ON outbox (kind, type, outbox_status, saga_status);
`

const (
	pgColumns       = `id, kind, saga_id, type, payload, domain_status, saga_status, outbox_status, created_at, processed_at, version`
	pgSelectColumns = `id::text, kind, saga_id::text, type, payload, domain_status, saga_status, outbox_status, created_at, processed_at, version`
)

// PostgresStore implements Store with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, msg Message) error {
	_, err := postgres.Conn(ctx, s.pool).Exec(ctx,
		`INSERT INTO outbox (`+pgColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		msg.ID, msg.Kind.String(), msg.SagaID, msg.Type, msg.Payload, msg.DomainStatus,
		msg.SagaStatus.String(), msg.OutboxStatus.String(), msg.CreatedAt, msg.ProcessedAt, msg.Version,
	)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, msg *Message) error {
	tag, err := postgres.Conn(ctx, s.pool).Exec(ctx,
		`UPDATE outbox
		    SET domain_status = $1, saga_status = $2, outbox_status = $3, processed_at = $4, version = version + 1
		  WHERE id = $5 AND version = $6`,
		msg.DomainStatus, msg.SagaStatus.String(), msg.OutboxStatus.String(), msg.ProcessedAt, msg.ID, msg.Version,
	)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("update outbox message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	msg.Version++
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Message, bool, error) {
	return s.queryOne(ctx, `SELECT `+pgSelectColumns+` FROM outbox WHERE id = $1`, id)
}

func (s *PostgresStore) FindBySagaID(ctx context.Context, kind Kind, sagaType, sagaID string, sagaStatuses ...saga.Status) (Message, bool, error) {
	return s.queryOne(ctx,
		`SELECT `+pgSelectColumns+` FROM outbox
		  WHERE kind = $1 AND type = $2 AND saga_id = $3
		    AND (cardinality($4::text[]) = 0 OR saga_status = ANY($4::text[]))
		  ORDER BY created_at LIMIT 1`,
		kind.String(), sagaType, sagaID, statusStrings(sagaStatuses))
}

func (s *PostgresStore) FindByDomainStatus(ctx context.Context, kind Kind, sagaType, sagaID, domainStatus string, outboxStatuses ...saga.OutboxStatus) (Message, bool, error) {
	return s.queryOne(ctx,
		`SELECT `+pgSelectColumns+` FROM outbox
		  WHERE kind = $1 AND type = $2 AND saga_id = $3 AND domain_status = $4
		    AND (cardinality($5::text[]) = 0 OR outbox_status = ANY($5::text[]))
		  ORDER BY created_at LIMIT 1`,
		kind.String(), sagaType, sagaID, domainStatus, statusStrings(outboxStatuses))
}

func (s *PostgresStore) FindByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) ([]Message, error) {
	return s.query(ctx,
		`SELECT `+pgSelectColumns+` FROM outbox
		  WHERE kind = $1 AND type = $2 AND outbox_status = $3
		    AND (cardinality($4::text[]) = 0 OR saga_status = ANY($4::text[]))
		  ORDER BY created_at`,
		kind.String(), sagaType, status.String(), statusStrings(sagaStatuses))
}

func (s *PostgresStore) DeleteByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) (int, error) {
	tag, err := postgres.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM outbox
		  WHERE kind = $1 AND type = $2 AND outbox_status = $3
		    AND (cardinality($4::text[]) = 0 OR saga_status = ANY($4::text[]))`,
		kind.String(), sagaType, status.String(), statusStrings(sagaStatuses))
	if err != nil {
		return 0, fmt.Errorf("delete outbox messages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) queryOne(ctx context.Context, sql string, args ...any) (Message, bool, error) {
	row := postgres.Conn(ctx, s.pool).QueryRow(ctx, sql, args...)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("query outbox message: %w", err)
	}
	return m, true, nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]Message, error) {
	rows, err := postgres.Conn(ctx, s.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		m                              Message
		kind, sagaStatus, outboxStatus string
	)
	err := row.Scan(&m.ID, &kind, &m.SagaID, &m.Type, &m.Payload, &m.DomainStatus,
		&sagaStatus, &outboxStatus, &m.CreatedAt, &m.ProcessedAt, &m.Version)
	if err != nil {
		return Message{}, err
	}
	m.Kind = Kind(kind)
	m.SagaStatus = saga.Status(sagaStatus)
	m.OutboxStatus = saga.OutboxStatus(outboxStatus)
	return m, nil
}

var _ Store = (*PostgresStore)(nil)
