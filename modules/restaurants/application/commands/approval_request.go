// Package commands applies restaurant approval requests.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/outbox"
	"github.com/Jbiscode/MSA-Order-Service/modules/restaurants/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events/contracts"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/saga"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/transaction"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

const tracerName = "github.com/Jbiscode/MSA-Order-Service/modules/restaurants/application/commands"

var ErrInvalidRequest = errors.New("invalid approval request")

// ApprovalRequestHandler records the restaurant's decision on a paid order
// together with the response row for the order service.
type ApprovalRequestHandler struct {
	restaurants domain.RestaurantRepository
	approvals   domain.OrderApprovalRepository
	outbox      outbox.Store
	scope       transaction.Scope
	service     *domain.Service
	publisher   outbox.Publisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewApprovalRequestHandler(
	restaurants domain.RestaurantRepository,
	approvals domain.OrderApprovalRepository,
	store outbox.Store,
	scope transaction.Scope,
	service *domain.Service,
	publisher outbox.Publisher,
	logger *slog.Logger,
) *ApprovalRequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalRequestHandler{
		restaurants: restaurants,
		approvals:   approvals,
		outbox:      store,
		scope:       scope,
		service:     service,
		publisher:   publisher,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// PersistOrderApproval approves or rejects the order. A request whose
// response was already delivered only publishes that response again.
func (h *ApprovalRequestHandler) PersistOrderApproval(ctx context.Context, req contracts.RestaurantApprovalRequest) error {
	ctx, span := h.tracer.Start(ctx, "restaurants.approval", trace.WithAttributes(attribute.String("saga.id", req.SagaID)))
	defer span.End()

	var delivered *outbox.Message
	err := h.scope.Execute(ctx, func(ctx context.Context) error {
		msg, ok, err := h.deliveredResponse(ctx, req.SagaID)
		if err != nil {
			return err
		}
		if ok {
			delivered = &msg
			return nil
		}

		restaurant, err := h.findRestaurant(ctx, req)
		if err != nil {
			return err
		}
		event := h.service.ValidateOrder(restaurant)
		if err := h.approvals.Save(ctx, event.Approval); err != nil {
			return fmt.Errorf("saving order approval: %w", err)
		}

		status := event.Approval.Status
		row, err := outbox.NewMessage(outbox.KindOrder, req.SagaID, response(req.SagaID, event), status.String(), SagaStatusFor(status))
		if err != nil {
			return err
		}
		if err := h.outbox.Insert(ctx, row); err != nil {
			return fmt.Errorf("saving order outbox: %w", err)
		}

		h.logger.Info("order approval persisted",
			slog.String("saga_id", req.SagaID),
			slog.String("order_id", req.OrderID),
			slog.String("approval_status", status.String()))
		return nil
	})
	if err != nil || delivered == nil {
		return err
	}

	h.logger.Info("order approval already processed, publishing response again", slog.String("saga_id", req.SagaID))
	if h.publisher != nil {
		h.publisher.Publish(ctx, *delivered, outbox.OutcomeRecorder(h.outbox, h.scope, h.logger))
	}
	return nil
}

func (h *ApprovalRequestHandler) deliveredResponse(ctx context.Context, sagaID string) (outbox.Message, bool, error) {
	for _, status := range []domain.ApprovalStatus{domain.Approved, domain.Rejected} {
		msg, ok, err := h.outbox.FindByDomainStatus(ctx, outbox.KindOrder, saga.OrderSagaName, sagaID, status.String(), saga.OutboxCompleted)
		if err != nil {
			return outbox.Message{}, false, fmt.Errorf("loading order outbox: %w", err)
		}
		if ok {
			return msg, true, nil
		}
	}
	return outbox.Message{}, false, nil
}

// findRestaurant builds the aggregate from the request and overlays the
// restaurant's confirmed product data.
func (h *ApprovalRequestHandler) findRestaurant(ctx context.Context, req contracts.RestaurantApprovalRequest) (*domain.Restaurant, error) {
	restaurant, err := restaurantFromRequest(req)
	if err != nil {
		return nil, err
	}

	productIDs := make([]types.ProductID, len(restaurant.OrderDetail.Products))
	for i, p := range restaurant.OrderDetail.Products {
		productIDs[i] = p.ID
	}
	info, ok, err := h.restaurants.FindRestaurantInformation(ctx, restaurant.ID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("loading restaurant: %w", err)
	}
	if !ok {
		h.logger.Error("restaurant not found", slog.String("restaurant_id", req.RestaurantID))
		return nil, domain.RestaurantNotFound(req.RestaurantID)
	}

	restaurant.Active = info.Active
	for i := range restaurant.OrderDetail.Products {
		p := &restaurant.OrderDetail.Products[i]
		for _, confirmed := range info.Products {
			if confirmed.ID == p.ID {
				p.Confirm(confirmed.Name, confirmed.Price, confirmed.Available)
			}
		}
	}
	return restaurant, nil
}

// restaurantFromRequest maps the request. Products the restaurant does not
// confirm stay unavailable.
func restaurantFromRequest(req contracts.RestaurantApprovalRequest) (*domain.Restaurant, error) {
	restaurantID, err := types.ParseRestaurantID(req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	orderID, err := types.ParseOrderID(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	products := make([]domain.Product, 0, len(req.Products))
	for _, line := range req.Products {
		id, err := types.ParseProductID(line.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		products = append(products, domain.Product{ID: id, Quantity: line.Quantity})
	}
	return &domain.Restaurant{
		ID: restaurantID,
		OrderDetail: domain.OrderDetail{
			ID:          orderID,
			Status:      domain.OrderStatus(req.RestaurantOrderStatus),
			Products:    products,
			TotalAmount: types.NewMoney(req.Price),
		},
	}, nil
}

// SagaStatusFor maps a decision to the saga status of its response row.
func SagaStatusFor(status domain.ApprovalStatus) saga.Status {
	if status == domain.Approved {
		return saga.StatusSucceeded
	}
	return saga.StatusCompensating
}

func response(sagaID string, event domain.OrderApprovalEvent) contracts.RestaurantApprovalResponse {
	failures := event.FailureMessages
	if failures == nil {
		failures = []string{}
	}
	return contracts.RestaurantApprovalResponse{
		ID:                  uuid.New().String(),
		SagaID:              sagaID,
		OrderID:             event.Approval.OrderID.String(),
		RestaurantID:        event.Approval.RestaurantID.String(),
		CreatedAt:           time.Now().UTC(),
		OrderApprovalStatus: contracts.OrderApprovalStatus(event.Approval.Status),
		FailureMessages:     failures,
	}
}
