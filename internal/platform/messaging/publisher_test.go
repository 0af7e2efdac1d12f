package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
)

type failingSender struct {
	calls int
	err   error
}

func (s *failingSender) Send(context.Context, string, string, []byte) error {
	s.calls++
	return s.err
}

func newMessage(t *testing.T) outbox.Message {
	t.Helper()
	msg, err := outbox.NewMessage(outbox.KindPayment, "saga-1", map[string]string{"orderId": "saga-1"}, "PENDING", saga.StatusStarted)
	require.NoError(t, err)
	return msg
}

func TestOutboxPublisher_Completed(t *testing.T) {
	bus := NewMemoryBus(nil)
	var key string
	var body []byte
	bus.Subscribe("payment-request", func(_ context.Context, k string, p []byte) error {
		key, body = k, p
		return nil
	})
	pub := NewOutboxPublisher(bus, "payment-request", nil)
	msg := newMessage(t)

	var outcomes []saga.OutboxStatus
	pub.Publish(context.Background(), msg, func(_ context.Context, _ outbox.Message, s saga.OutboxStatus) {
		outcomes = append(outcomes, s)
	})

	assert.Equal(t, []saga.OutboxStatus{saga.OutboxCompleted}, outcomes)
	assert.Equal(t, "saga-1", key)
	assert.JSONEq(t, `{"orderId":"saga-1"}`, string(body))
}

func TestOutboxPublisher_Failed(t *testing.T) {
	pub := NewOutboxPublisher(&failingSender{err: errors.New("broker down")}, "payment-request", nil)

	var outcomes []saga.OutboxStatus
	pub.Publish(context.Background(), newMessage(t), func(_ context.Context, _ outbox.Message, s saga.OutboxStatus) {
		outcomes = append(outcomes, s)
	})
	assert.Equal(t, []saga.OutboxStatus{saga.OutboxFailed}, outcomes)
}

func TestBreakerSender_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingSender{err: errors.New("broker down")}
	s := NewBreakerSender(next, BreakerConfig{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for range 2 {
		assert.Error(t, s.Send(context.Background(), "t", "k", nil))
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	err := s.Send(context.Background(), "t", "k", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls)
}
