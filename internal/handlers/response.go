package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"go.uber.org/zap"
)

// submissionFailedMessage is the notice shown when an order cannot be placed
const submissionFailedMessage = "Failed to place order. Please try again."

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Cart   any    `json:"cart,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, message string, log *zap.Logger) {
	WriteJSON(w, status, ErrorResponse{Error: message}, log)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSubmissionFailed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrNoIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrSubmissionInFlight),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrInventoryNotTracked),
		errors.Is(err, repository.ErrDuplicateOrder):
		return http.StatusConflict
	case errors.Is(err, coupon.ErrInvalidCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidOrderType),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrMissingCashier),
		errors.Is(err, service.ErrInvalidTotals):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status; cart, when non-nil,
// carries the unchanged terminal state
func writeDomainError(w http.ResponseWriter, err error, cart any, log *zap.Logger) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Cart: cart}

	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
		resp.Error = "Internal server error"
	case http.StatusBadGateway:
		log.Warn("order submission failed", zap.Error(err))
		resp.Error = submissionFailedMessage
		resp.Detail = strings.TrimPrefix(err.Error(), service.ErrSubmissionFailed.Error()+": ")
	default:
		log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	WriteJSON(w, status, resp, log)
}

// cartOrNil drops the snapshot of a request that never reached a cart
func cartOrNil(snap service.CartSnapshot) any {
	if snap.CashierID == "" {
		return nil
	}
	return snap
}

// identity returns the cashier, writing 401 when the request has none
func identity(w http.ResponseWriter, r *http.Request, log *zap.Logger) (session.Identity, bool) {
	id, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized: API key required", log)
	}
	return id, ok
}

// decodeJSON reads a JSON body, writing 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, log *zap.Logger) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		log.Debug("failed to decode request body", zap.Error(err))
		WriteError(w, http.StatusBadRequest, "Invalid request body", log)
		return false
	}
	return true
}
