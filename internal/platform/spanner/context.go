package spanner

import (
	"context"

	"cloud.google.com/go/spanner"
)

type (
	rwTxKey struct{}
	roTxKey struct{}
)

// ReadTransaction is the read surface shared by read-write and read-only transactions.
type ReadTransaction interface {
	ReadRow(ctx context.Context, table string, key spanner.Key, columns []string) (*spanner.Row, error)
	ReadRowUsingIndex(ctx context.Context, table, index string, key spanner.Key, columns []string) (*spanner.Row, error)
	Read(ctx context.Context, table string, keys spanner.KeySet, columns []string) *spanner.RowIterator
	Query(ctx context.Context, statement spanner.Statement) *spanner.RowIterator
}

func withReadWriteTx(ctx context.Context, tx *spanner.ReadWriteTransaction) (context.Context, error) {
	if inTransaction(ctx) {
		return nil, ErrNestedTransaction
	}
	return context.WithValue(ctx, rwTxKey{}, tx), nil
}

func withReadOnlyTx(ctx context.Context, tx *spanner.ReadOnlyTransaction) (context.Context, error) {
	if inTransaction(ctx) {
		return nil, ErrNestedTransaction
	}
	return context.WithValue(ctx, roTxKey{}, tx), nil
}

func inTransaction(ctx context.Context) bool {
	_, rw := ReadWriteTxFromContext(ctx)
	_, ro := ctx.Value(roTxKey{}).(*spanner.ReadOnlyTransaction)
	return rw || ro
}

// ReadWriteTxFromContext extracts a Spanner ReadWriteTransaction from context.
// Returns (nil, false) if no transaction is present.
func ReadWriteTxFromContext(ctx context.Context) (*spanner.ReadWriteTransaction, bool) {
	tx, ok := ctx.Value(rwTxKey{}).(*spanner.ReadWriteTransaction)
	return tx, ok
}

// ReadTransactionFromContext returns whichever transaction ctx carries,
// preferring the read-write one so reads observe its own locks.
func ReadTransactionFromContext(ctx context.Context) (ReadTransaction, bool) {
	if tx, ok := ReadWriteTxFromContext(ctx); ok {
		return tx, true
	}
	if tx, ok := ctx.Value(roTxKey{}).(*spanner.ReadOnlyTransaction); ok {
		return tx, true
	}
	return nil, false
}
