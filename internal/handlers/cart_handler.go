package handlers

import (
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartHandler handles the cashier's cart, discount and order type
type CartHandler struct {
	store *service.StoreService
	log   *zap.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(store *service.StoreService, log *zap.Logger) *CartHandler {
	return &CartHandler{
		store: store,
		log:   log,
	}
}

type addItemRequest struct {
	ItemID string `json:"itemId"`
}

type updateItemRequest struct {
	Delta int `json:"delta"`
}

type discountRequest struct {
	Code string `json:"code"`
}

type orderTypeRequest struct {
	OrderType string `json:"orderType"`
}

// reply writes the snapshot, or the error with the unchanged snapshot
func (h *CartHandler) reply(w http.ResponseWriter, snap service.CartSnapshot, err error) {
	if err != nil {
		writeDomainError(w, err, cartOrNil(snap), h.log)
		return
	}
	WriteJSON(w, http.StatusOK, snap, h.log)
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	snap, err := h.store.Snapshot(id)
	h.reply(w, snap, err)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}
	if req.ItemID == "" {
		WriteError(w, http.StatusBadRequest, "itemId is required", h.log)
		return
	}

	snap, err := h.store.AddToCart(r.Context(), id, req.ItemID)
	h.reply(w, snap, err)
}

// UpdateItem handles PATCH /api/cart/items/{itemId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}

	snap, err := h.store.UpdateQuantity(r.Context(), id, chi.URLParam(r, "itemId"), req.Delta)
	h.reply(w, snap, err)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	snap, err := h.store.ClearCart(r.Context(), id)
	h.reply(w, snap, err)
}

// ApplyDiscount handles PUT /api/cart/discount
func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	var req discountRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}

	snap, err := h.store.ApplyDiscount(r.Context(), id, req.Code)
	h.reply(w, snap, err)
}

// ClearDiscount handles DELETE /api/cart/discount
func (h *CartHandler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	snap, err := h.store.ClearDiscount(r.Context(), id)
	h.reply(w, snap, err)
}

// SetOrderType handles PUT /api/cart/order-type
func (h *CartHandler) SetOrderType(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	var req orderTypeRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}

	snap, err := h.store.SetOrderType(r.Context(), id, models.OrderType(req.OrderType))
	h.reply(w, snap, err)
}

// RequestCheckout handles POST /api/checkout
func (h *CartHandler) RequestCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	snap, err := h.store.RequestCheckout(r.Context(), id)
	h.reply(w, snap, err)
}

// CancelCheckout handles DELETE /api/checkout
func (h *CartHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	snap, err := h.store.CancelCheckout(r.Context(), id)
	h.reply(w, snap, err)
}

// CheckoutResponse is returned when an order is placed
type CheckoutResponse struct {
	OrderID string               `json:"orderId"`
	Message string               `json:"message"`
	Cart    service.CartSnapshot `json:"cart"`
}

// ConfirmCheckout handles POST /api/checkout/confirm
func (h *CartHandler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}

	orderID, snap, err := h.store.ConfirmCheckout(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, cartOrNil(snap), h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID: orderID,
		Message: "Order placed successfully! Order ID: " + orderID,
		Cart:    snap,
	}, h.log)
}
