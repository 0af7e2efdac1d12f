package modules_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/memtx"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/participant"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/commands"
	orderdomain "github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	orderpersistence "github.com/Jbiscode/MSA-Order-Service/modules/orders/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/payments"
	paymentpersistence "github.com/Jbiscode/MSA-Order-Service/modules/payments/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants"
	restaurantdomain "github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	restaurantpersistence "github.com/Jbiscode/MSA-Order-Service/modules/restaurants/infrastructure/persistence"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const (
	customerID   = "d215b5f8-0249-4dc5-89a3-51fd148cfb41"
	restaurantID = "d215b5f8-0249-4dc5-89a3-51fd148cfb45"
	productID    = "d215b5f8-0249-4dc5-89a3-51fd148cfb48"
)

// system runs the three services against one in-memory bus. Relays are
// driven by hand so every hop is deterministic.
type system struct {
	orders      orders.Module
	orderOutbox *outbox.MemoryStore
	credits     *paymentpersistence.InMemoryRepository
	restaurants *restaurantpersistence.InMemoryRepository
	relays      []*outbox.Relay
	customer    types.CustomerID
}

func newSystem(t *testing.T, balance string, productAvailable bool) *system {
	t.Helper()
	bus := messaging.NewMemoryBus(nil)
	cid, _ := types.ParseCustomerID(customerID)
	rid, _ := types.ParseRestaurantID(restaurantID)
	pid, _ := types.ParseProductID(productID)
	price := types.MustParseMoney("50.00")

	s := &system{customer: cid}

	// order service
	catalog := orderpersistence.NewInMemoryCatalog()
	catalog.AddCustomer(orderdomain.Customer{ID: cid, Username: "user_1"})
	catalog.AddRestaurant(orderdomain.Restaurant{
		ID: rid, Active: true,
		Products: []orderdomain.Product{{ID: pid, Name: "product_2", Price: price}},
	})
	s.orderOutbox = outbox.NewMemoryStore()
	orderScope := memtx.NewScope()
	s.orders = orders.New(orders.Config{
		Orders:      orderpersistence.NewInMemoryRepository(),
		Customers:   catalog,
		Restaurants: catalog,
		Outbox:      s.orderOutbox,
		TxScope:     orderScope,
	})

	// payment service
	s.credits = paymentpersistence.NewInMemoryRepository()
	s.credits.Seed(cid, types.MustParseMoney(balance))
	paymentOutbox := outbox.NewMemoryStore()
	paymentScope := memtx.NewScope()
	paymentModule := payments.New(payments.Config{
		Payments:  s.credits.Payments(),
		Credits:   s.credits.Credits(),
		Histories: s.credits.Histories(),
		Outbox:    paymentOutbox,
		TxScope:   paymentScope,
		Sender:    bus,
	})

	// restaurant service
	s.restaurants = restaurantpersistence.NewInMemoryRepository()
	s.restaurants.AddRestaurant(restaurantdomain.RestaurantInfo{
		ID: rid, Active: true,
		Products: []restaurantdomain.Product{{ID: pid, Name: "product_2", Price: price, Available: productAvailable}},
	})
	restaurantOutbox := outbox.NewMemoryStore()
	restaurantScope := memtx.NewScope()
	restaurantModule := restaurants.New(restaurants.Config{
		Restaurants: s.restaurants,
		Approvals:   s.restaurants,
		Outbox:      restaurantOutbox,
		TxScope:     restaurantScope,
		Sender:      bus,
	})

	type service struct {
		module participant.Participant
		store  outbox.Store
		scope  *memtx.Scope
	}
	for _, svc := range []service{
		{s.orders, s.orderOutbox, orderScope},
		{paymentModule, paymentOutbox, paymentScope},
		{restaurantModule, restaurantOutbox, restaurantScope},
	} {
		for topic, h := range svc.module.Subscriptions() {
			bus.Subscribe(topic, h)
		}
		runner := participant.New(svc.module, svc.store, svc.scope, bus, participant.DefaultConfig(), nil, nil)
		s.relays = append(s.relays, runner.Relays()...)
	}
	return s
}

// settle runs relay passes until no relay has anything left to publish.
func (s *system) settle(t *testing.T) {
	t.Helper()
	for pass := 0; pass < 20; pass++ {
		published := 0
		for _, r := range s.relays {
			result, err := r.RunOnce(context.Background())
			if err != nil {
				t.Fatalf("relay pass: %v", err)
			}
			if result.Failed > 0 {
				t.Fatalf("relay pass failed to publish %d messages", result.Failed)
			}
			published += result.Published
		}
		if published == 0 {
			return
		}
	}
	t.Fatal("saga did not settle")
}

func (s *system) placeOrder(t *testing.T) string {
	t.Helper()
	result, err := s.orders.CreateOrder(context.Background(), commands.CreateOrderCommand{
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Price:        "100.00",
		Items: []commands.OrderItemInput{
			{ProductID: productID, Quantity: 2, Price: "50.00", Subtotal: "100.00"},
		},
		Address: commands.OrderAddressInput{Street: "street_1", PostalCode: "1000AB", City: "Amsterdam"},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if result.Status != string(orderdomain.StatusPending) {
		t.Fatalf("initial status = %s, want PENDING", result.Status)
	}
	return result.TrackingID
}

func (s *system) status(t *testing.T, trackingID string) (string, []string) {
	t.Helper()
	result, err := s.orders.TrackOrder(context.Background(), trackingID)
	if err != nil {
		t.Fatalf("TrackOrder() error = %v", err)
	}
	return result.Status, result.FailureMessages
}

func (s *system) sagaStatuses(kind outbox.Kind) []saga.Status {
	var out []saga.Status
	for _, row := range s.orderOutbox.All(kind) {
		out = append(out, row.SagaStatus)
	}
	slices.Sort(out)
	return out
}

func TestSaga_OrderApproved(t *testing.T) {
	s := newSystem(t, "500.00", true)
	trackingID := s.placeOrder(t)

	s.settle(t)

	if status, _ := s.status(t, trackingID); status != string(orderdomain.StatusApproved) {
		t.Fatalf("order status = %s, want APPROVED", status)
	}
	if got := s.credits.Balance(s.customer); !got.Equals(types.MustParseMoney("400.00")) {
		t.Errorf("balance = %s, want 400.00", got)
	}
	if got := s.sagaStatuses(outbox.KindPayment); !slices.Equal(got, []saga.Status{saga.StatusSucceeded}) {
		t.Errorf("payment rows = %v, want [SUCCEEDED]", got)
	}
	if got := s.sagaStatuses(outbox.KindApproval); !slices.Equal(got, []saga.Status{saga.StatusSucceeded}) {
		t.Errorf("approval rows = %v, want [SUCCEEDED]", got)
	}
}

func TestSaga_RestaurantRejectionRefundsPayment(t *testing.T) {
	s := newSystem(t, "500.00", false)
	trackingID := s.placeOrder(t)

	s.settle(t)

	status, failures := s.status(t, trackingID)
	if status != string(orderdomain.StatusCancelled) {
		t.Fatalf("order status = %s, want CANCELLED", status)
	}
	want := fmt.Sprintf("productId: %s 상품이 현재 구매불가입니다.", productID)
	if !slices.Contains(failures, want) {
		t.Errorf("failure messages = %v, want %q", failures, want)
	}
	if got := s.credits.Balance(s.customer); !got.Equals(types.MustParseMoney("500.00")) {
		t.Errorf("balance = %s, want credit restored to 500.00", got)
	}
	if got := s.sagaStatuses(outbox.KindApproval); !slices.Equal(got, []saga.Status{saga.StatusCompensated}) {
		t.Errorf("approval rows = %v, want [COMPENSATED]", got)
	}
	// The original payment row is compensated; the refund request row keeps
	// the status it was written with.
	if got := s.sagaStatuses(outbox.KindPayment); !slices.Equal(got, []saga.Status{saga.StatusCompensated, saga.StatusCompensating}) {
		t.Errorf("payment rows = %v, want [COMPENSATED COMPENSATING]", got)
	}
}

func TestSaga_InsufficientCreditCancelsOrder(t *testing.T) {
	s := newSystem(t, "20.00", true)
	trackingID := s.placeOrder(t)

	s.settle(t)

	status, failures := s.status(t, trackingID)
	if status != string(orderdomain.StatusCancelled) {
		t.Fatalf("order status = %s, want CANCELLED", status)
	}
	want := fmt.Sprintf("CustomerId: %s 의 금액이 결제하기에 충분하지 않습니다.", customerID)
	if !slices.Contains(failures, want) {
		t.Errorf("failure messages = %v, want %q", failures, want)
	}
	if got := s.credits.Balance(s.customer); !got.Equals(types.MustParseMoney("20.00")) {
		t.Errorf("balance = %s, want untouched 20.00", got)
	}
	if got := s.sagaStatuses(outbox.KindPayment); !slices.Equal(got, []saga.Status{saga.StatusFailed}) {
		t.Errorf("payment rows = %v, want [FAILED]", got)
	}
	if rows := s.orderOutbox.All(outbox.KindApproval); len(rows) != 0 {
		t.Errorf("approval rows = %d, want none", len(rows))
	}
}
