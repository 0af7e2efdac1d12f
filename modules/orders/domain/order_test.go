package domain_test

import (
	"errors"
	"testing"

	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

var (
	testCustomerID   = mustCustomerID("d215b5f8-0249-4dc5-89a3-51fd148cfb41")
	testRestaurantID = mustRestaurantID("d215b5f8-0249-4dc5-89a3-51fd148cfb45")
	testProductID    = mustProductID("d215b5f8-0249-4dc5-89a3-51fd148cfb48")
)

func mustCustomerID(s string) types.CustomerID {
	id, err := types.ParseCustomerID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func mustRestaurantID(s string) types.RestaurantID {
	id, err := types.ParseRestaurantID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func mustProductID(s string) types.ProductID {
	id, err := types.ParseProductID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func item(quantity int, price, subtotal string) domain.OrderItem {
	return domain.OrderItem{
		Product:  domain.Product{ID: testProductID},
		Quantity: quantity,
		Price:    types.MustParseMoney(price),
		Subtotal: types.MustParseMoney(subtotal),
	}
}

func activeRestaurant() domain.Restaurant {
	return domain.Restaurant{
		ID:     testRestaurantID,
		Active: true,
		Products: []domain.Product{
			{ID: testProductID, Name: "product-1", Price: types.MustParseMoney("50.00")},
		},
	}
}

func newTestOrder(price string) *domain.Order {
	return domain.NewOrder(domain.NewOrderParams{
		CustomerID:   testCustomerID,
		RestaurantID: testRestaurantID,
		Address:      domain.StreetAddress{Street: "street_1", PostalCode: "1000AB", City: "Paris"},
		Price:        types.MustParseMoney(price),
		Items:        []domain.OrderItem{item(1, "50.00", "50.00"), item(3, "50.00", "150.00")},
	})
}

func initiatedOrder(t *testing.T) *domain.Order {
	t.Helper()
	order := newTestOrder("200.00")
	if _, err := domain.NewService(nil).ValidateAndInitiateOrder(order, activeRestaurant()); err != nil {
		t.Fatalf("failed to initiate order: %v", err)
	}
	return order
}

func TestService_ValidateAndInitiateOrder(t *testing.T) {
	order := newTestOrder("200.00")

	event, err := domain.NewService(nil).ValidateAndInitiateOrder(order, activeRestaurant())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status() != domain.StatusPending {
		t.Errorf("expected status PENDING, got %s", order.Status())
	}
	if order.ID().IsZero() || order.TrackingID().IsZero() {
		t.Error("expected order and tracking ids to be assigned")
	}
	if order.Price().String() != "200.00" {
		t.Errorf("expected price 200.00, got %s", order.Price())
	}
	if event.Order != order || event.AggregateID() != order.ID().String() {
		t.Error("expected event to reference the initiated order")
	}
	if order.Items()[1].ID != 2 || order.Items()[0].Product.Name != "product-1" {
		t.Errorf("expected numbered items with confirmed product names, got %+v", order.Items())
	}
}

func TestService_ValidateAndInitiateOrder_TotalMismatch(t *testing.T) {
	order := newTestOrder("250.00")

	_, err := domain.NewService(nil).ValidateAndInitiateOrder(order, activeRestaurant())

	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	want := "종합 가격: 250.00 과 아이템 가격: 200.00 가 일치하지 않습니다."
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !order.ID().IsZero() || order.Status() != "" {
		t.Error("expected order to stay uninitialized")
	}
}

func TestService_ValidateAndInitiateOrder_ItemPriceMismatch(t *testing.T) {
	order := domain.NewOrder(domain.NewOrderParams{
		CustomerID:   testCustomerID,
		RestaurantID: testRestaurantID,
		Price:        types.MustParseMoney("210.00"),
		Items:        []domain.OrderItem{item(1, "60.00", "60.00"), item(3, "50.00", "150.00")},
	})

	_, err := domain.NewService(nil).ValidateAndInitiateOrder(order, activeRestaurant())

	want := "주문 상품 가격: 60.00 과 상품: " + testProductID.String() + " 가 일치하지 않습니다."
	if err == nil || err.Error() != want {
		t.Errorf("expected %q, got %v", want, err)
	}
}

func TestService_ValidateAndInitiateOrder_InactiveRestaurant(t *testing.T) {
	restaurant := activeRestaurant()
	restaurant.Active = false

	_, err := domain.NewService(nil).ValidateAndInitiateOrder(newTestOrder("200.00"), restaurant)

	want := "레스토랑: " + testRestaurantID.String() + "는 현재 주문을 받지 않습니다."
	if err == nil || err.Error() != want {
		t.Errorf("expected %q, got %v", want, err)
	}
}

func TestOrder_SuccessPath(t *testing.T) {
	order := initiatedOrder(t)
	svc := domain.NewService(nil)

	if _, err := svc.PayOrder(order); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := svc.ApproveOrder(order); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if order.Status() != domain.StatusApproved {
		t.Errorf("expected APPROVED, got %s", order.Status())
	}
}

func TestOrder_CompensationPath(t *testing.T) {
	order := initiatedOrder(t)
	svc := domain.NewService(nil)

	if _, err := svc.PayOrder(order); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := svc.CancelOrderPayment(order, []string{"rejected"}); err != nil {
		t.Fatalf("cancel payment: %v", err)
	}
	if order.Status() != domain.StatusCancelling {
		t.Errorf("expected CANCELLING, got %s", order.Status())
	}
	if err := svc.CancelOrder(order, []string{"", "refunded"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status() != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", order.Status())
	}
	got := order.FailureMessages()
	if len(got) != 2 || got[0] != "rejected" || got[1] != "refunded" {
		t.Errorf("unexpected failure messages %v", got)
	}
}

func TestOrder_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		act  func(o *domain.Order) error
	}{
		{"approve pending", func(o *domain.Order) error { return o.Approve() }},
		{"pay twice", func(o *domain.Order) error {
			if err := o.Pay(); err != nil {
				return nil
			}
			return o.Pay()
		}},
		{"cancel paid", func(o *domain.Order) error {
			if err := o.Pay(); err != nil {
				return nil
			}
			return o.Cancel(nil)
		}},
		{"init cancel cancelled", func(o *domain.Order) error {
			if err := o.Cancel(nil); err != nil {
				return nil
			}
			return o.InitCancel(nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.act(initiatedOrder(t))
			if !errors.Is(err, domain.ErrIllegalTransition) {
				t.Errorf("expected ErrIllegalTransition, got %v", err)
			}
			if !domain.IsValidationError(err) {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestOrder_ValidateRejectsInitializedOrder(t *testing.T) {
	order := initiatedOrder(t)
	if err := order.Validate(); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder, got %v", err)
	}
}
