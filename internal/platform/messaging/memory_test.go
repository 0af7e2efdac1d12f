package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_SendDeliversToSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)
	var got []string
	bus.Subscribe("payment-request", func(_ context.Context, key string, payload []byte) error {
		got = append(got, key+":"+string(payload))
		return nil
	})
	bus.Subscribe("other", func(context.Context, string, []byte) error {
		t.Fatal("unexpected delivery")
		return nil
	})

	require.NoError(t, bus.Send(context.Background(), "payment-request", "saga-1", []byte(`{}`)))
	assert.Equal(t, []string{"saga-1:{}"}, got)
}

func TestMemoryBus_HandlerErrorIsReturned(t *testing.T) {
	bus := NewMemoryBus(nil)
	boom := errors.New("boom")
	bus.Subscribe("t", func(context.Context, string, []byte) error { return boom })

	assert.ErrorIs(t, bus.Send(context.Background(), "t", "k", nil), boom)
}

func TestMemoryBus_SendAfterClose(t *testing.T) {
	bus := NewMemoryBus(nil)
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Send(context.Background(), "t", "k", nil), ErrTransportClosed)
}

func TestMemoryBus_ConsumeBlocksUntilCancelled(t *testing.T) {
	bus := NewMemoryBus(nil)
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(ctx, "t", func(_ context.Context, key string, _ []byte) error {
			received <- key
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.handlers["t"]) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Send(context.Background(), "t", "saga-9", nil))
	assert.Equal(t, "saga-9", <-received)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after cancel")
	}
}
