package handlers

import (
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderHandler exposes the order-creation backend
type OrderHandler struct {
	orderService *service.OrderService
	log          *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// CreateOrder handles POST /api/orders
// The cashier defaults to the authenticated identity
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}
	if req.CashierID == "" {
		req.CashierID = id.CashierID
	}
	if req.CashierName == "" {
		req.CashierName = id.DisplayName()
	}
	if req.OrderType == "" {
		req.OrderType = models.DefaultOrderType
	}

	order, err := h.orderService.CreateOrder(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, nil, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, order, h.log)
}

// GetOrder handles GET /api/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, nil, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}
