package handlers

import (
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// couponCatalog is the resolver plus its statistics
type couponCatalog interface {
	coupon.Resolver
	Stats() coupon.Stats
}

// CouponHandler handles HTTP requests for discount code lookups
type CouponHandler struct {
	catalog couponCatalog
	log     *zap.Logger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(catalog couponCatalog, log *zap.Logger) *CouponHandler {
	return &CouponHandler{
		catalog: catalog,
		log:     log,
	}
}

// ResolveCoupon handles GET /api/coupon/{couponCode}
// Query: subtotal (decimal, default 0), category (repeated category ids)
func (h *CouponHandler) ResolveCoupon(w http.ResponseWriter, r *http.Request) {
	couponCode := chi.URLParam(r, "couponCode")

	subtotal := decimal.Zero
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		var err error
		subtotal, err = decimal.NewFromString(raw)
		if err != nil || subtotal.IsNegative() {
			WriteError(w, http.StatusBadRequest, "subtotal must be a non-negative number", h.log)
			return
		}
	}

	discount, err := h.catalog.Resolve(r.Context(), couponCode, subtotal, r.URL.Query()["category"])
	if err == nil && discount == nil {
		err = coupon.ErrInvalidCode
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			writeDomainError(w, err, nil, h.log)
			return
		}
		WriteJSON(w, status, map[string]any{
			"valid":  false,
			"coupon": couponCode,
			"error":  "Invalid discount code",
		}, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"coupon":   discount.Code,
		"discount": discount,
		"total":    subtotal.Sub(discount.Amount),
	}, h.log)
}

// GetStats handles GET /api/coupon/stats (for debugging/monitoring)
func (h *CouponHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.catalog.Stats(), h.log)
}
