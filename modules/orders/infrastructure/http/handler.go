// Package http provides HTTP handlers for the orders module.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/httpserver"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/commands"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/application/queries"
	"github.com/Jbiscode/MSA-Order-Service/modules/orders/domain"
)

type Handler struct {
	createOrder *commands.CreateOrderHandler
	trackOrder  *queries.TrackOrderHandler
	logger      *slog.Logger
}

// RegisterRoutes registers the orders module routes to the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	createOrder *commands.CreateOrderHandler,
	trackOrder *queries.TrackOrderHandler,
	logger *slog.Logger,
) {
	h := &Handler{
		createOrder: createOrder,
		trackOrder:  trackOrder,
		logger:      logger,
	}

	mux.HandleFunc("POST /orders", h.handleCreateOrder)
	mux.HandleFunc("GET /orders/{trackingId}", h.handleTrackOrder)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.createOrder.Handle(r.Context(), cmd)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httpserver.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	query := queries.TrackOrderQuery{TrackingID: r.PathValue("trackingId")}
	result, err := h.trackOrder.Handle(r.Context(), query)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &notFound):
		httpserver.WriteError(w, http.StatusNotFound, notFound.Message)
	case errors.Is(err, commands.ErrInvalidCommand), domain.IsValidationError(err):
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("order request failed", slog.Any("error", err))
		httpserver.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
