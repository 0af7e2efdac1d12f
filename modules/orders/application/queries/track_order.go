// Package queries contains read use cases for the orders module.
package queries

import (
	"context"
	"fmt"

	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
	"github.com/Jbiscode/MSA-Order-Service/modules/shared/types"
)

// TrackOrderResult is the public view of an order's progress.
type TrackOrderResult struct {
	TrackingID      string   `json:"orderTrackingId"`
	Status          string   `json:"orderStatus"`
	FailureMessages []string `json:"failureMessages"`
}

// TrackOrderQuery looks an order up by its tracking id.
type TrackOrderQuery struct {
	TrackingID string
}

type TrackOrderHandler struct {
	repo domain.OrderRepository
}

func NewTrackOrderHandler(repo domain.OrderRepository) *TrackOrderHandler {
	return &TrackOrderHandler{repo: repo}
}

func (h *TrackOrderHandler) Handle(ctx context.Context, query TrackOrderQuery) (TrackOrderResult, error) {
	trackingID, err := types.ParseTrackingID(query.TrackingID)
	if err != nil {
		return TrackOrderResult{}, domain.OrderNotFound(query.TrackingID)
	}

	order, ok, err := h.repo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		return TrackOrderResult{}, fmt.Errorf("loading order: %w", err)
	}
	if !ok {
		return TrackOrderResult{}, domain.OrderNotFound(query.TrackingID)
	}

	messages := order.FailureMessages()
	if messages == nil {
		messages = []string{}
	}
	return TrackOrderResult{
		TrackingID:      order.TrackingID().String(),
		Status:          order.Status().String(),
		FailureMessages: messages,
	}, nil
}
