package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	platformspanner "github.com/Jbiscode/MSA-Order-Service/internal/platform/spanner"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

// SpannerStore implements Store on the Outbox table:
//
//	CREATE TABLE Outbox (
//	  ID STRING(36) NOT NULL, Kind STRING(16) NOT NULL, SagaID STRING(36) NOT NULL,
//	  Type STRING(64) NOT NULL, Payload STRING(MAX) NOT NULL, DomainStatus STRING(16) NOT NULL,
//	  SagaStatus STRING(16) NOT NULL, OutboxStatus STRING(16) NOT NULL,
//	  CreatedAt TIMESTAMP NOT NULL, ProcessedAt TIMESTAMP, Version INT64 NOT NULL,
//	) PRIMARY KEY (ID);
//	CREATE UNIQUE INDEX OutboxBySagaIdentity ON Outbox (Kind, Type, SagaID, SagaStatus, DomainStatus);
//	CREATE INDEX OutboxBySagaStatus ON Outbox (Kind, Type, SagaID, SagaStatus);
//	CREATE INDEX OutboxByOutboxStatus ON Outbox (Kind, Type, OutboxStatus, SagaStatus);
type SpannerStore struct {
	client *spanner.Client
}

func NewSpannerStore(client *spanner.Client) *SpannerStore {
	return &SpannerStore{client: client}
}

const spannerColumns = `ID, Kind, SagaID, Type, Payload, DomainStatus, SagaStatus, OutboxStatus, CreatedAt, ProcessedAt, Version`

func (s *SpannerStore) Insert(ctx context.Context, msg Message) error {
	stmt := spanner.Statement{
		SQL: `INSERT INTO Outbox (` + spannerColumns + `)
		      VALUES (@id, @kind, @sagaID, @type, @payload, @domainStatus, @sagaStatus, @outboxStatus, @createdAt, @processedAt, @version)`,
		Params: map[string]interface{}{
			"id":           msg.ID,
			"kind":         msg.Kind.String(),
			"sagaID":       msg.SagaID,
			"type":         msg.Type,
			"payload":      string(msg.Payload),
			"domainStatus": msg.DomainStatus,
			"sagaStatus":   msg.SagaStatus.String(),
			"outboxStatus": msg.OutboxStatus.String(),
			"createdAt":    msg.CreatedAt,
			"processedAt":  nullTime(msg.ProcessedAt),
			"version":      msg.Version,
		},
	}

	err := s.write(ctx, func(ctx context.Context, tx *spanner.ReadWriteTransaction) error {
		_, err := tx.Update(ctx, stmt)
		return err
	})
	if platformspanner.IsAlreadyExists(err) {
		return ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}
	return nil
}

func (s *SpannerStore) Update(ctx context.Context, msg *Message) error {
	stmt := spanner.Statement{
		SQL: `UPDATE Outbox
		      SET DomainStatus = @domainStatus, SagaStatus = @sagaStatus, OutboxStatus = @outboxStatus,
		          ProcessedAt = @processedAt, Version = Version + 1
		      WHERE ID = @id AND Version = @version`,
		Params: map[string]interface{}{
			"id":           msg.ID,
			"domainStatus": msg.DomainStatus,
			"sagaStatus":   msg.SagaStatus.String(),
			"outboxStatus": msg.OutboxStatus.String(),
			"processedAt":  nullTime(msg.ProcessedAt),
			"version":      msg.Version,
		},
	}

	var affected int64
	err := s.write(ctx, func(ctx context.Context, tx *spanner.ReadWriteTransaction) error {
		n, err := tx.Update(ctx, stmt)
		affected = n
		return err
	})
	if platformspanner.IsAlreadyExists(err) {
		return ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("failed to update outbox message: %w", err)
	}
	if affected == 0 {
		return ErrStaleWrite
	}
	msg.Version++
	return nil
}

func (s *SpannerStore) FindByID(ctx context.Context, id string) (Message, bool, error) {
	return s.queryOne(ctx, spanner.Statement{
		SQL:    `SELECT ` + spannerColumns + ` FROM Outbox WHERE ID = @id`,
		Params: map[string]interface{}{"id": id},
	})
}

func (s *SpannerStore) FindBySagaID(ctx context.Context, kind Kind, sagaType, sagaID string, sagaStatuses ...saga.Status) (Message, bool, error) {
	return s.queryOne(ctx, spanner.Statement{
		SQL: `SELECT ` + spannerColumns + ` FROM Outbox@{FORCE_INDEX=OutboxBySagaStatus}
		      WHERE Kind = @kind AND Type = @type AND SagaID = @sagaID
		        AND (ARRAY_LENGTH(@sagaStatuses) = 0 OR SagaStatus IN UNNEST(@sagaStatuses))
		      ORDER BY CreatedAt LIMIT 1`,
		Params: map[string]interface{}{
			"kind":         kind.String(),
			"type":         sagaType,
			"sagaID":       sagaID,
			"sagaStatuses": statusStrings(sagaStatuses),
		},
	})
}

func (s *SpannerStore) FindByDomainStatus(ctx context.Context, kind Kind, sagaType, sagaID, domainStatus string, outboxStatuses ...saga.OutboxStatus) (Message, bool, error) {
	return s.queryOne(ctx, spanner.Statement{
		SQL: `SELECT ` + spannerColumns + ` FROM Outbox
		      WHERE Kind = @kind AND Type = @type AND SagaID = @sagaID AND DomainStatus = @domainStatus
		        AND (ARRAY_LENGTH(@outboxStatuses) = 0 OR OutboxStatus IN UNNEST(@outboxStatuses))
		      ORDER BY CreatedAt LIMIT 1`,
		Params: map[string]interface{}{
			"kind":           kind.String(),
			"type":           sagaType,
			"sagaID":         sagaID,
			"domainStatus":   domainStatus,
			"outboxStatuses": statusStrings(outboxStatuses),
		},
	})
}

func (s *SpannerStore) FindByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) ([]Message, error) {
	return s.query(ctx, spanner.Statement{
		SQL: `SELECT ` + spannerColumns + ` FROM Outbox@{FORCE_INDEX=OutboxByOutboxStatus}
		      WHERE Kind = @kind AND Type = @type AND OutboxStatus = @outboxStatus
		        AND (ARRAY_LENGTH(@sagaStatuses) = 0 OR SagaStatus IN UNNEST(@sagaStatuses))
		      ORDER BY CreatedAt`,
		Params: map[string]interface{}{
			"kind":         kind.String(),
			"type":         sagaType,
			"outboxStatus": status.String(),
			"sagaStatuses": statusStrings(sagaStatuses),
		},
	})
}

func (s *SpannerStore) DeleteByOutboxStatus(ctx context.Context, kind Kind, sagaType string, status saga.OutboxStatus, sagaStatuses ...saga.Status) (int, error) {
	stmt := spanner.Statement{
		SQL: `DELETE FROM Outbox
		      WHERE Kind = @kind AND Type = @type AND OutboxStatus = @outboxStatus
		        AND (ARRAY_LENGTH(@sagaStatuses) = 0 OR SagaStatus IN UNNEST(@sagaStatuses))`,
		Params: map[string]interface{}{
			"kind":         kind.String(),
			"type":         sagaType,
			"outboxStatus": status.String(),
			"sagaStatuses": statusStrings(sagaStatuses),
		},
	}

	var deleted int64
	err := s.write(ctx, func(ctx context.Context, tx *spanner.ReadWriteTransaction) error {
		n, err := tx.Update(ctx, stmt)
		deleted = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete outbox messages: %w", err)
	}
	return int(deleted), nil
}

// write uses the transaction in ctx if available, otherwise runs its own.
func (s *SpannerStore) write(ctx context.Context, fn func(ctx context.Context, tx *spanner.ReadWriteTransaction) error) error {
	if tx, ok := platformspanner.ReadWriteTxFromContext(ctx); ok {
		return fn(ctx, tx)
	}
	_, err := s.client.ReadWriteTransaction(ctx, fn)
	return err
}

func (s *SpannerStore) reader(ctx context.Context) platformspanner.ReadTransaction {
	if tx, ok := platformspanner.ReadTransactionFromContext(ctx); ok {
		return tx
	}
	return s.client.Single()
}

func (s *SpannerStore) queryOne(ctx context.Context, stmt spanner.Statement) (Message, bool, error) {
	msgs, err := s.query(ctx, stmt)
	if err != nil {
		return Message{}, false, err
	}
	if len(msgs) == 0 {
		return Message{}, false, nil
	}
	return msgs[0], true, nil
}

func (s *SpannerStore) query(ctx context.Context, stmt spanner.Statement) ([]Message, error) {
	iter := s.reader(ctx).Query(ctx, stmt)
	defer iter.Stop()

	var out []Message
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query outbox: %w", err)
		}

		var (
			m                                       Message
			kind, payload, sagaStatus, outboxStatus string
			processedAt                             spanner.NullTime
		)
		if err := row.Columns(&m.ID, &kind, &m.SagaID, &m.Type, &payload, &m.DomainStatus,
			&sagaStatus, &outboxStatus, &m.CreatedAt, &processedAt, &m.Version); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		m.Kind = Kind(kind)
		m.Payload = []byte(payload)
		m.SagaStatus = saga.Status(sagaStatus)
		m.OutboxStatus = saga.OutboxStatus(outboxStatus)
		if processedAt.Valid {
			t := processedAt.Time
			m.ProcessedAt = &t
		}
		out = append(out, m)
	}
	return out, nil
}

func nullTime(t *time.Time) spanner.NullTime {
	if t == nil {
		return spanner.NullTime{}
	}
	return spanner.NullTime{Time: *t, Valid: true}
}

var _ Store = (*SpannerStore)(nil)
