package memtx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
)

func TestScope_RollbackReplaysUndoInReverse(t *testing.T) {
	scope := memtx.NewScope()
	var trail []string
	errBoom := errors.New("boom")

	err := scope.Execute(context.Background(), func(ctx context.Context) error {
		assert.True(t, memtx.InTransaction(ctx))
		memtx.OnRollback(ctx, func() { trail = append(trail, "first") })
		memtx.OnRollback(ctx, func() { trail = append(trail, "second") })
		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"second", "first"}, trail)
}

func TestScope_CommitDiscardsUndo(t *testing.T) {
	scope := memtx.NewScope()
	undone := false

	err := scope.Execute(context.Background(), func(ctx context.Context) error {
		memtx.OnRollback(ctx, func() { undone = true })
		return nil
	})

	require.NoError(t, err)
	assert.False(t, undone)
}

func TestScope_NestedExecuteJoinsOuter(t *testing.T) {
	scope := memtx.NewScope()
	undone := 0
	errOuter := errors.New("outer failed")

	err := scope.Execute(context.Background(), func(ctx context.Context) error {
		inner := scope.Execute(ctx, func(ctx context.Context) error {
			memtx.OnRollback(ctx, func() { undone++ })
			return nil
		})
		require.NoError(t, inner)
		return errOuter
	})

	require.ErrorIs(t, err, errOuter)
	assert.Equal(t, 1, undone)
}

func TestOnRollback_OutsideTransactionIsNoop(t *testing.T) {
	assert.False(t, memtx.InTransaction(context.Background()))
	memtx.OnRollback(context.Background(), func() { t.Fatal("must not run") })
}
