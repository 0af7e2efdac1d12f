// Package commands contains write use cases for the orders module.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/steps"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// ErrInvalidCommand is returned when a command fails field validation.
var ErrInvalidCommand = errors.New("invalid create order command")

// CreateOrderCommand places a new order.
type CreateOrderCommand struct {
	CustomerID   string            `json:"customerId" validate:"required,uuid"`
	RestaurantID string            `json:"restaurantId" validate:"required,uuid"`
	Price        string            `json:"price" validate:"required,numeric"`
	Items        []OrderItemInput  `json:"items" validate:"required,min=1,dive"`
	Address      OrderAddressInput `json:"address" validate:"required"`
}

type OrderItemInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Price     string `json:"price" validate:"required,numeric"`
	Subtotal  string `json:"subTotal" validate:"required,numeric"`
}

type OrderAddressInput struct {
	Street     string `json:"street" validate:"required,max=50"`
	PostalCode string `json:"postalCode" validate:"required,max=10"`
	City       string `json:"city" validate:"required,max=50"`
}

// CreateOrderResult is returned to the client.
type CreateOrderResult struct {
	TrackingID string `json:"orderTrackingId"`
	Status     string `json:"orderStatus"`
	Message    string `json:"message"`
}

const orderCreatedMessage = "주문이 성공적으로 생성되었습니다."

type CreateOrderHandler struct {
	orders      domain.OrderRepository
	customers   domain.CustomerRepository
	restaurants domain.RestaurantRepository
	outbox      outbox.Store
	txScope     transaction.Scope
	service     *domain.Service
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewCreateOrderHandler(
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	restaurants domain.RestaurantRepository,
	store outbox.Store,
	txScope transaction.Scope,
	service *domain.Service,
	logger *slog.Logger,
) *CreateOrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateOrderHandler{
		orders:      orders,
		customers:   customers,
		restaurants: restaurants,
		outbox:      store,
		txScope:     txScope,
		service:     service,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

// Handle validates and persists the order and, in the same transaction,
// schedules the payment request that starts the saga.
func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if err := h.validate.Struct(cmd); err != nil {
		return CreateOrderResult{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	params, err := toOrderParams(cmd)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	return transaction.ExecuteWithResult(ctx, h.txScope, func(ctx context.Context) (CreateOrderResult, error) {
		if err := h.checkCustomer(ctx, params.CustomerID); err != nil {
			return CreateOrderResult{}, err
		}
		restaurant, err := h.findRestaurant(ctx, params)
		if err != nil {
			return CreateOrderResult{}, err
		}

		order := domain.NewOrder(params)
		if _, err := h.service.ValidateAndInitiateOrder(order, restaurant); err != nil {
			return CreateOrderResult{}, err
		}
		if err := h.orders.Save(ctx, order); err != nil {
			return CreateOrderResult{}, fmt.Errorf("saving order: %w", err)
		}

		sagaID := uuid.New().String()
		msg, err := outbox.NewMessage(outbox.KindPayment, sagaID,
			steps.PaymentRequest(sagaID, order, contracts.PaymentOrderPending),
			order.Status().String(), steps.SagaStatusFor(order.Status()))
		if err != nil {
			return CreateOrderResult{}, err
		}
		if err := h.outbox.Insert(ctx, msg); err != nil {
			return CreateOrderResult{}, fmt.Errorf("saving payment outbox: %w", err)
		}

		h.logger.Info("order created",
			slog.String("order_id", order.ID().String()),
			slog.String("tracking_id", order.TrackingID().String()),
			slog.String("saga_id", sagaID))

		return CreateOrderResult{
			TrackingID: order.TrackingID().String(),
			Status:     order.Status().String(),
			Message:    orderCreatedMessage,
		}, nil
	})
}

func (h *CreateOrderHandler) checkCustomer(ctx context.Context, id types.CustomerID) error {
	_, ok, err := h.customers.FindCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("loading customer: %w", err)
	}
	if !ok {
		h.logger.Warn("customer not found", slog.String("customer_id", id.String()))
		return domain.CustomerNotFound(id.String())
	}
	return nil
}

func (h *CreateOrderHandler) findRestaurant(ctx context.Context, params domain.NewOrderParams) (domain.Restaurant, error) {
	productIDs := make([]types.ProductID, len(params.Items))
	for i, item := range params.Items {
		productIDs[i] = item.Product.ID
	}
	restaurant, ok, err := h.restaurants.FindRestaurant(ctx, params.RestaurantID, productIDs)
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("loading restaurant: %w", err)
	}
	if !ok {
		h.logger.Warn("restaurant not found", slog.String("restaurant_id", params.RestaurantID.String()))
		return domain.Restaurant{}, domain.RestaurantNotFound(params.RestaurantID.String())
	}
	return restaurant, nil
}

func toOrderParams(cmd CreateOrderCommand) (domain.NewOrderParams, error) {
	customerID, err := types.ParseCustomerID(cmd.CustomerID)
	if err != nil {
		return domain.NewOrderParams{}, err
	}
	restaurantID, err := types.ParseRestaurantID(cmd.RestaurantID)
	if err != nil {
		return domain.NewOrderParams{}, err
	}
	price, err := types.ParseMoney(cmd.Price)
	if err != nil {
		return domain.NewOrderParams{}, err
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, in := range cmd.Items {
		productID, err := types.ParseProductID(in.ProductID)
		if err != nil {
			return domain.NewOrderParams{}, err
		}
		itemPrice, err := types.ParseMoney(in.Price)
		if err != nil {
			return domain.NewOrderParams{}, err
		}
		subtotal, err := types.ParseMoney(in.Subtotal)
		if err != nil {
			return domain.NewOrderParams{}, err
		}
		items[i] = domain.OrderItem{
			Product:  domain.Product{ID: productID},
			Quantity: in.Quantity,
			Price:    itemPrice,
			Subtotal: subtotal,
		}
	}

	return domain.NewOrderParams{
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Address: domain.StreetAddress{
			ID:         uuid.New().String(),
			Street:     cmd.Address.Street,
			PostalCode: cmd.Address.PostalCode,
			City:       cmd.Address.City,
		},
		Price: price,
		Items: items,
	}, nil
}
