// Package memtx provides an in-process unit of work for the in-memory
// repositories. It serializes transactions of one Scope and replays the
// registered undo steps when the transaction function fails.
package memtx

import (
	"context"
	"sync"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
)

type txKey struct{}

type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Scope implements transaction.Scope for in-memory storage.
type Scope struct {
	mu sync.Mutex
}

func NewScope() *Scope {
	return &Scope{}
}

// Execute runs fn while holding the scope lock. A nested Execute on the
// same context joins the outer transaction.
func (s *Scope) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if j, ok := ctx.Value(txKey{}).(*journal); ok && j != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// OnRollback registers undo to run if the surrounding transaction fails.
// Outside a transaction the write is final and undo is discarded.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(txKey{}).(*journal); ok && j != nil {
		j.undo = append(j.undo, undo)
	}
}

// InTransaction reports whether ctx carries an in-memory transaction.
func InTransaction(ctx context.Context) bool {
	j, ok := ctx.Value(txKey{}).(*journal)
	return ok && j != nil
}

var _ transaction.Scope = (*Scope)(nil)
