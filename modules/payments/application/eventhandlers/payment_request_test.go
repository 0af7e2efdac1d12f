package eventhandlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/application/eventhandlers"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
)

type mockCommands struct {
	completeFunc func(ctx context.Context, req contracts.PaymentRequest) error
	cancelFunc   func(ctx context.Context, req contracts.PaymentRequest) error
}

func (m *mockCommands) CompletePayment(ctx context.Context, req contracts.PaymentRequest) error {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return nil
}

func (m *mockCommands) CancelPayment(ctx context.Context, req contracts.PaymentRequest) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, req)
	}
	return nil
}

func payload(t *testing.T, status contracts.PaymentOrderStatus) []byte {
	t.Helper()
	body, err := json.Marshal(contracts.PaymentRequest{SagaID: "saga-1", PaymentOrderStatus: status})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestHandle_Dispatch(t *testing.T) {
	var completed, cancelled int
	h := eventhandlers.NewPaymentRequestHandler(&mockCommands{
		completeFunc: func(context.Context, contracts.PaymentRequest) error { completed++; return nil },
		cancelFunc:   func(context.Context, contracts.PaymentRequest) error { cancelled++; return nil },
	}, slog.Default())

	if err := h.Handle(context.Background(), "saga-1", payload(t, contracts.PaymentOrderPending)); err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(context.Background(), "saga-1", payload(t, contracts.PaymentOrderCancelled)); err != nil {
		t.Fatal(err)
	}

	if completed != 1 || cancelled != 1 {
		t.Errorf("completed = %d, cancelled = %d, want 1 and 1", completed, cancelled)
	}
}

func TestHandle_ErrorPolicy(t *testing.T) {
	transient := errors.New("connection reset")
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"stale write is acknowledged", outbox.ErrStaleWrite, nil},
		{"duplicate is acknowledged", outbox.ErrDuplicateMessage, nil},
		{"missing payment is acknowledged", fmt.Errorf("order x: %w", domain.ErrPaymentNotFound), nil},
		{"missing credit is acknowledged", domain.ErrCreditEntryNotFound, nil},
		{"transient error is redelivered", transient, transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := eventhandlers.NewPaymentRequestHandler(&mockCommands{
				completeFunc: func(context.Context, contracts.PaymentRequest) error { return tt.err },
			}, slog.Default())

			err := h.Handle(context.Background(), "saga-1", payload(t, contracts.PaymentOrderPending))

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Handle() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandle_UndecodablePayloadIsDropped(t *testing.T) {
	h := eventhandlers.NewPaymentRequestHandler(&mockCommands{}, slog.Default())

	if err := h.Handle(context.Background(), "k", []byte("{")); err != nil {
		t.Errorf("Handle() error = %v, want nil", err)
	}
}
