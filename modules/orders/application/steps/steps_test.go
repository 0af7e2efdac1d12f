package steps_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/steps"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const (
	customerID   = "d215b5f8-0249-4dc5-89a3-51fd148cfb41"
	restaurantID = "d215b5f8-0249-4dc5-89a3-51fd148cfb45"
	productID    = "d215b5f8-0249-4dc5-89a3-51fd148cfb48"
)

type fixture struct {
	orders   *persistence.InMemoryRepository
	outbox   *outbox.MemoryStore
	payment  *steps.PaymentStep
	approval *steps.ApprovalStep

	sagaID  string
	orderID string
}

// newFixture places one order and returns the saga it started.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders: persistence.NewInMemoryRepository(),
		outbox: outbox.NewMemoryStore(),
	}
	scope := memtx.NewScope()
	service := domain.NewService(nil)

	catalog := persistence.NewInMemoryCatalog()
	cid, _ := types.ParseCustomerID(customerID)
	rid, _ := types.ParseRestaurantID(restaurantID)
	pid, _ := types.ParseProductID(productID)
	catalog.AddCustomer(domain.Customer{ID: cid})
	catalog.AddRestaurant(domain.Restaurant{
		ID: rid, Active: true,
		Products: []domain.Product{{ID: pid, Name: "product-1", Price: types.MustParseMoney("50.00")}},
	})

	create := commands.NewCreateOrderHandler(f.orders, catalog, catalog, f.outbox, scope, service, nil)
	_, err := create.Handle(context.Background(), commands.CreateOrderCommand{
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Price:        "200.00",
		Items: []commands.OrderItemInput{
			{ProductID: productID, Quantity: 1, Price: "50.00", Subtotal: "50.00"},
			{ProductID: productID, Quantity: 3, Price: "50.00", Subtotal: "150.00"},
		},
		Address: commands.OrderAddressInput{Street: "street_1", PostalCode: "1000AB", City: "Paris"},
	})
	if err != nil {
		t.Fatalf("creating order: %v", err)
	}

	row := f.outbox.All(outbox.KindPayment)[0]
	var req contracts.PaymentRequest
	if err := row.Decode(&req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	f.sagaID, f.orderID = row.SagaID, req.OrderID

	f.payment = steps.NewPaymentStep(f.orders, f.outbox, scope, service, nil)
	f.approval = steps.NewApprovalStep(f.orders, f.outbox, scope, service, nil)
	return f
}

func (f *fixture) paymentResponse(status contracts.PaymentStatus, msgs ...string) contracts.PaymentResponse {
	return contracts.PaymentResponse{
		SagaID:          f.sagaID,
		OrderID:         f.orderID,
		CustomerID:      customerID,
		Price:           types.MustParseMoney("200.00").Amount(),
		PaymentStatus:   status,
		FailureMessages: msgs,
	}
}

func (f *fixture) approvalResponse(status contracts.OrderApprovalStatus, msgs ...string) contracts.RestaurantApprovalResponse {
	return contracts.RestaurantApprovalResponse{
		SagaID:              f.sagaID,
		OrderID:             f.orderID,
		RestaurantID:        restaurantID,
		OrderApprovalStatus: status,
		FailureMessages:     msgs,
	}
}

func (f *fixture) orderStatus(t *testing.T) domain.Status {
	t.Helper()
	id, _ := types.ParseOrderID(f.orderID)
	order, ok, err := f.orders.FindByID(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("order not found: %v", err)
	}
	return order.Status()
}

func sagaStatuses(rows []outbox.Message) []saga.Status {
	out := make([]saga.Status, len(rows))
	for i, r := range rows {
		out[i] = r.SagaStatus
	}
	return out
}

func rowWithStatus(rows []outbox.Message, status saga.Status) (outbox.Message, bool) {
	for _, r := range rows {
		if r.SagaStatus == status {
			return r, true
		}
	}
	return outbox.Message{}, false
}

func TestPaymentStep_Process_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 2 {
		if err := f.payment.Process(ctx, f.paymentResponse(contracts.PaymentCompleted)); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if got := f.orderStatus(t); got != domain.StatusPaid {
		t.Errorf("expected PAID, got %s", got)
	}
	approvals := f.outbox.All(outbox.KindApproval)
	if len(approvals) != 1 {
		t.Fatalf("expected one approval outbox row, got %d", len(approvals))
	}
	if approvals[0].SagaStatus != saga.StatusProcessing || approvals[0].DomainStatus != "PAID" {
		t.Errorf("unexpected approval row %+v", approvals[0])
	}
	var req contracts.RestaurantApprovalRequest
	if err := approvals[0].Decode(&req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Products) != 2 || req.RestaurantOrderStatus != contracts.RestaurantOrderPaid {
		t.Errorf("unexpected approval request %+v", req)
	}
	if got := f.outbox.All(outbox.KindPayment)[0].SagaStatus; got != saga.StatusProcessing {
		t.Errorf("expected payment row PROCESSING, got %s", got)
	}
}

func TestPaymentStep_Rollback_UnknownSagaIsNoop(t *testing.T) {
	f := newFixture(t)
	resp := f.paymentResponse(contracts.PaymentFailed, "insufficient")
	resp.SagaID = "4b7b9c5e-0000-4000-8000-000000000000"

	if err := f.payment.Rollback(context.Background(), resp); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got := f.orderStatus(t); got != domain.StatusPending {
		t.Errorf("expected PENDING, got %s", got)
	}
	if got := sagaStatuses(f.outbox.All(outbox.KindPayment)); len(got) != 1 || got[0] != saga.StatusStarted {
		t.Errorf("expected payment rows unchanged, got %v", got)
	}
}

func TestPaymentStep_Rollback_FailedPaymentCancelsOrder(t *testing.T) {
	f := newFixture(t)

	if err := f.payment.Rollback(context.Background(), f.paymentResponse(contracts.PaymentFailed, "잔액이 부족합니다.")); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got := f.orderStatus(t); got != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", got)
	}
	row := f.outbox.All(outbox.KindPayment)[0]
	if row.SagaStatus != saga.StatusFailed || row.DomainStatus != "CANCELLED" {
		t.Errorf("unexpected payment row %+v", row)
	}
}

func TestApprovalStep_Process_ConcurrentDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.payment.Process(ctx, f.paymentResponse(contracts.PaymentCompleted)); err != nil {
		t.Fatalf("process payment: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.approval.Process(ctx, f.approvalResponse(contracts.OrderApprovalApproved))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, transaction.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if got := f.orderStatus(t); got != domain.StatusApproved {
		t.Errorf("expected APPROVED, got %s", got)
	}
	if got := sagaStatuses(f.outbox.All(outbox.KindApproval)); len(got) != 1 || got[0] != saga.StatusSucceeded {
		t.Errorf("expected one SUCCEEDED approval row, got %v", got)
	}
	if got := sagaStatuses(f.outbox.All(outbox.KindPayment)); len(got) != 1 || got[0] != saga.StatusSucceeded {
		t.Errorf("expected one SUCCEEDED payment row, got %v", got)
	}
}

func TestApprovalStep_Rollback_RequestsRefundThenCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.payment.Process(ctx, f.paymentResponse(contracts.PaymentCompleted)); err != nil {
		t.Fatalf("process payment: %v", err)
	}

	if err := f.approval.Rollback(ctx, f.approvalResponse(contracts.OrderApprovalRejected, "상품이 현재 구매불가입니다.")); err != nil {
		t.Fatalf("rollback approval: %v", err)
	}

	if got := f.orderStatus(t); got != domain.StatusCancelling {
		t.Errorf("expected CANCELLING, got %s", got)
	}
	payments := f.outbox.All(outbox.KindPayment)
	if len(payments) != 2 {
		t.Fatalf("expected refund request row, got %d payment rows", len(payments))
	}
	refund, ok := rowWithStatus(payments, saga.StatusCompensating)
	if !ok {
		t.Fatalf("expected a COMPENSATING refund row, got %v", sagaStatuses(payments))
	}
	var req contracts.PaymentRequest
	if err := refund.Decode(&req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if refund.SagaStatus != saga.StatusCompensating || req.PaymentOrderStatus != contracts.PaymentOrderCancelled {
		t.Errorf("unexpected refund row %+v / %+v", refund, req)
	}

	if err := f.payment.Rollback(ctx, f.paymentResponse(contracts.PaymentCancelled)); err != nil {
		t.Fatalf("rollback payment: %v", err)
	}

	if got := f.orderStatus(t); got != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", got)
	}
	if got := f.outbox.All(outbox.KindApproval)[0].SagaStatus; got != saga.StatusCompensated {
		t.Errorf("expected approval row COMPENSATED, got %s", got)
	}
	if _, ok := rowWithStatus(f.outbox.All(outbox.KindPayment), saga.StatusCompensated); !ok {
		t.Errorf("expected original payment row COMPENSATED, got %v", sagaStatuses(f.outbox.All(outbox.KindPayment)))
	}
}

type staleStore struct {
	outbox.Store
}

func (staleStore) Update(context.Context, *outbox.Message) error {
	return outbox.ErrStaleWrite
}

func TestPaymentStep_Process_StaleWriteRollsBackOrder(t *testing.T) {
	f := newFixture(t)
	step := steps.NewPaymentStep(f.orders, staleStore{f.outbox}, memtx.NewScope(), domain.NewService(nil), nil)

	err := step.Process(context.Background(), f.paymentResponse(contracts.PaymentCompleted))

	if !errors.Is(err, transaction.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := f.orderStatus(t); got != domain.StatusPending {
		t.Errorf("expected order save undone, got %s", got)
	}
}

func TestSagaStatusFor(t *testing.T) {
	tests := map[domain.Status]saga.Status{
		domain.StatusPending:    saga.StatusStarted,
		domain.StatusPaid:       saga.StatusProcessing,
		domain.StatusApproved:   saga.StatusSucceeded,
		domain.StatusCancelling: saga.StatusCompensating,
		domain.StatusCancelled:  saga.StatusCompensated,
	}
	for in, want := range tests {
		if got := steps.SagaStatusFor(in); got != want {
			t.Errorf("SagaStatusFor(%s) = %s, want %s", in, got, want)
		}
	}
}
