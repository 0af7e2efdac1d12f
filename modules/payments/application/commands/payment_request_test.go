package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const (
	customerID = "d215b5f8-0249-4dc5-89a3-51fd148cfb41"
	sagaID     = "15a497c1-0f4b-4eff-b9f4-c402c8c07afa"
)

type recordingPublisher struct {
	published []outbox.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg outbox.Message, done outbox.Callback) {
	p.published = append(p.published, msg)
	done(ctx, msg, saga.OutboxCompleted)
}

type fixture struct {
	repo      *persistence.InMemoryRepository
	outbox    *outbox.MemoryStore
	scope     *memtx.Scope
	publisher *recordingPublisher
	handler   *commands.PaymentRequestHandler
	customer  types.CustomerID
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	cid, err := types.ParseCustomerID(customerID)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		repo:      persistence.NewInMemoryRepository(),
		outbox:    outbox.NewMemoryStore(),
		scope:     memtx.NewScope(),
		publisher: &recordingPublisher{},
		customer:  cid,
	}
	f.repo.Seed(cid, types.MustParseMoney(balance))
	f.handler = commands.NewPaymentRequestHandler(commands.Repositories{
		Payments:  f.repo.Payments(),
		Credits:   f.repo.Credits(),
		Histories: f.repo.Histories(),
		Outbox:    f.outbox,
	}, f.scope, domain.NewService(nil), f.publisher, nil)
	return f
}

func request(status contracts.PaymentOrderStatus, orderID string) contracts.PaymentRequest {
	return contracts.PaymentRequest{
		ID:                 uuid.New().String(),
		SagaID:             sagaID,
		CustomerID:         customerID,
		OrderID:            orderID,
		Price:              decimal.RequireFromString("200.00"),
		CreatedAt:          time.Now().UTC(),
		PaymentOrderStatus: status,
	}
}

func (f *fixture) responses(t *testing.T) []contracts.PaymentResponse {
	t.Helper()
	var out []contracts.PaymentResponse
	for _, row := range f.outbox.All(outbox.KindOrder) {
		var resp contracts.PaymentResponse
		if err := row.Decode(&resp); err != nil {
			t.Fatal(err)
		}
		out = append(out, resp)
	}
	return out
}

func (f *fixture) deliverAll(t *testing.T) {
	t.Helper()
	for _, row := range f.outbox.All(outbox.KindOrder) {
		if row.OutboxStatus != saga.OutboxStarted {
			continue
		}
		if err := outbox.RecordOutcome(context.Background(), f.outbox, f.scope, row, saga.OutboxCompleted); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCompletePayment_DebitsCredit(t *testing.T) {
	// Arrange
	f := newFixture(t, "500.00")
	orderID := types.NewOrderID().String()

	// Act
	err := f.handler.CompletePayment(context.Background(), request(contracts.PaymentOrderPending, orderID))

	// Assert
	if err != nil {
		t.Fatalf("CompletePayment() error = %v", err)
	}
	if got := f.repo.Balance(f.customer); !got.Equals(types.MustParseMoney("300.00")) {
		t.Errorf("balance = %s, want 300.00", got)
	}
	rows := f.outbox.All(outbox.KindOrder)
	if len(rows) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(rows))
	}
	if rows[0].SagaStatus != saga.StatusProcessing || rows[0].DomainStatus != "COMPLETED" {
		t.Errorf("row = (%s, %s), want (PROCESSING, COMPLETED)", rows[0].SagaStatus, rows[0].DomainStatus)
	}
	resp := f.responses(t)[0]
	if resp.PaymentStatus != contracts.PaymentCompleted || resp.OrderID != orderID || resp.PaymentID == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.FailureMessages == nil {
		t.Error("failure messages should encode as an empty list")
	}
	histories, _, _ := f.repo.Histories().FindByCustomerID(context.Background(), f.customer)
	if !domain.LedgerBalance(histories).Equals(types.MustParseMoney("300.00")) {
		t.Errorf("ledger balance = %s, want 300.00", domain.LedgerBalance(histories))
	}
}

func TestCompletePayment_RedeliveryRepublishes(t *testing.T) {
	f := newFixture(t, "500.00")
	req := request(contracts.PaymentOrderPending, types.NewOrderID().String())
	if err := f.handler.CompletePayment(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	f.deliverAll(t)

	if err := f.handler.CompletePayment(context.Background(), req); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}

	if got := f.repo.Balance(f.customer); !got.Equals(types.MustParseMoney("300.00")) {
		t.Errorf("balance = %s, want a single debit", got)
	}
	if len(f.outbox.All(outbox.KindOrder)) != 1 {
		t.Error("redelivery wrote a second response row")
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("published = %d, want 1", len(f.publisher.published))
	}
}

func TestCompletePayment_UndeliveredDuplicateIsRejected(t *testing.T) {
	f := newFixture(t, "500.00")
	req := request(contracts.PaymentOrderPending, types.NewOrderID().String())
	if err := f.handler.CompletePayment(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	err := f.handler.CompletePayment(context.Background(), req)

	if !errors.Is(err, outbox.ErrDuplicateMessage) {
		t.Fatalf("error = %v, want ErrDuplicateMessage", err)
	}
	if got := f.repo.Balance(f.customer); !got.Equals(types.MustParseMoney("300.00")) {
		t.Errorf("balance = %s, duplicate debit was not rolled back", got)
	}
}

func TestCompletePayment_InsufficientCreditFails(t *testing.T) {
	f := newFixture(t, "100.00")

	err := f.handler.CompletePayment(context.Background(), request(contracts.PaymentOrderPending, types.NewOrderID().String()))

	if err != nil {
		t.Fatalf("CompletePayment() error = %v", err)
	}
	if got := f.repo.Balance(f.customer); !got.Equals(types.MustParseMoney("100.00")) {
		t.Errorf("balance = %s, failed payment must not touch credit", got)
	}
	histories, _, _ := f.repo.Histories().FindByCustomerID(context.Background(), f.customer)
	if len(histories) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(histories))
	}
	rows := f.outbox.All(outbox.KindOrder)
	if len(rows) != 1 || rows[0].SagaStatus != saga.StatusFailed {
		t.Fatalf("rows = %+v, want one FAILED row", rows)
	}
	if resp := f.responses(t)[0]; resp.PaymentStatus != contracts.PaymentFailed || len(resp.FailureMessages) == 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestCancelPayment_RestoresCredit(t *testing.T) {
	f := newFixture(t, "500.00")
	orderID := types.NewOrderID().String()
	if err := f.handler.CompletePayment(context.Background(), request(contracts.PaymentOrderPending, orderID)); err != nil {
		t.Fatal(err)
	}

	err := f.handler.CancelPayment(context.Background(), request(contracts.PaymentOrderCancelled, orderID))

	if err != nil {
		t.Fatalf("CancelPayment() error = %v", err)
	}
	if got := f.repo.Balance(f.customer); !got.Equals(types.MustParseMoney("500.00")) {
		t.Errorf("balance = %s, want 500.00", got)
	}
	if _, ok, _ := f.outbox.FindBySagaID(context.Background(), outbox.KindOrder, saga.OrderSagaName, sagaID, saga.StatusCompensated); !ok {
		t.Error("no COMPENSATED response row")
	}
	histories, _, _ := f.repo.Histories().FindByCustomerID(context.Background(), f.customer)
	if len(histories) != 3 || histories[2].Type != domain.Credit {
		t.Errorf("ledger = %+v, want seed, debit, credit", histories)
	}
}

func TestCancelPayment_UnknownPayment(t *testing.T) {
	f := newFixture(t, "500.00")

	err := f.handler.CancelPayment(context.Background(), request(contracts.PaymentOrderCancelled, types.NewOrderID().String()))

	if !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("error = %v, want ErrPaymentNotFound", err)
	}
	if len(f.outbox.All(outbox.KindOrder)) != 0 {
		t.Error("outbox row written for unknown payment")
	}
}

func TestCompletePayment_UnknownCustomer(t *testing.T) {
	f := newFixture(t, "500.00")
	req := request(contracts.PaymentOrderPending, types.NewOrderID().String())
	req.CustomerID = uuid.New().String()

	err := f.handler.CompletePayment(context.Background(), req)

	if !errors.Is(err, domain.ErrCreditEntryNotFound) {
		t.Fatalf("error = %v, want ErrCreditEntryNotFound", err)
	}
}

func TestCompletePayment_InvalidRequest(t *testing.T) {
	f := newFixture(t, "500.00")

	err := f.handler.CompletePayment(context.Background(), request(contracts.PaymentOrderPending, "not-a-uuid"))

	if !errors.Is(err, commands.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestSagaStatusFor(t *testing.T) {
	tests := []struct {
		status domain.PaymentStatus
		want   saga.Status
	}{
		{domain.PaymentCompleted, saga.StatusProcessing},
		{domain.PaymentCancelled, saga.StatusCompensated},
		{domain.PaymentFailed, saga.StatusFailed},
	}
	for _, tt := range tests {
		if got := commands.SagaStatusFor(tt.status); got != tt.want {
			t.Errorf("SagaStatusFor(%s) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
