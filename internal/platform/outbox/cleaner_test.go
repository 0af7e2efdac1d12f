package outbox_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

func insertWithStatus(t *testing.T, store *outbox.MemoryStore, kind outbox.Kind, sagaStatus saga.Status, delivered saga.OutboxStatus) outbox.Message {
	t.Helper()
	ctx := context.Background()
	msg := newMessage(t, kind, uuid.NewString(), sagaStatus)
	require.NoError(t, store.Insert(ctx, msg))
	if delivered != saga.OutboxStarted {
		msg.OutboxStatus = delivered
		require.NoError(t, store.Update(ctx, &msg))
	}
	return msg
}

func TestCleaner_DeletesOnlyTerminalCompletedRows(t *testing.T) {
	store := outbox.NewMemoryStore()

	succeeded := insertWithStatus(t, store, outbox.KindPayment, saga.StatusSucceeded, saga.OutboxCompleted)
	compensated := insertWithStatus(t, store, outbox.KindPayment, saga.StatusCompensated, saga.OutboxCompleted)
	failed := insertWithStatus(t, store, outbox.KindPayment, saga.StatusFailed, saga.OutboxCompleted)
	inFlight := insertWithStatus(t, store, outbox.KindPayment, saga.StatusProcessing, saga.OutboxCompleted)
	undelivered := insertWithStatus(t, store, outbox.KindPayment, saga.StatusSucceeded, saga.OutboxStarted)
	publishFailed := insertWithStatus(t, store, outbox.KindPayment, saga.StatusSucceeded, saga.OutboxFailed)

	cleaner := outbox.NewCleaner(store, memtx.NewScope(), outbox.CleanerConfig{
		Kind:         outbox.KindPayment,
		SagaStatuses: saga.TerminalStatuses(),
	}, nil, nil)

	n, err := cleaner.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var remaining []string
	for _, m := range store.All(outbox.KindPayment) {
		remaining = append(remaining, m.ID)
	}
	assert.ElementsMatch(t, []string{inFlight.ID, undelivered.ID, publishFailed.ID}, remaining)
	assert.NotContains(t, remaining, succeeded.ID)
	assert.NotContains(t, remaining, compensated.ID)
	assert.NotContains(t, remaining, failed.ID)
}

func TestCleaner_AnySagaStatusForParticipants(t *testing.T) {
	store := outbox.NewMemoryStore()
	insertWithStatus(t, store, outbox.KindOrder, saga.StatusProcessing, saga.OutboxCompleted)
	insertWithStatus(t, store, outbox.KindOrder, saga.StatusCompensated, saga.OutboxCompleted)
	keep := insertWithStatus(t, store, outbox.KindOrder, saga.StatusFailed, saga.OutboxStarted)

	cleaner := outbox.NewCleaner(store, memtx.NewScope(), outbox.CleanerConfig{Kind: outbox.KindOrder}, nil, nil)

	n, err := cleaner.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rows := store.All(outbox.KindOrder)
	require.Len(t, rows, 1)
	assert.Equal(t, keep.ID, rows[0].ID)
}
