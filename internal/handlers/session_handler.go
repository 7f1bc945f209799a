package handlers

import (
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/nav"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"go.uber.org/zap"
)

// SessionHandler serves the sidebar and logout
type SessionHandler struct {
	registry *session.Registry
	store    *service.StoreService
	log      *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *session.Registry, store *service.StoreService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		store:    store,
		log:      log,
	}
}

// NavResponse is the sidebar for the current cashier
type NavResponse struct {
	Cashier session.Identity `json:"cashier"`
	Routes  []nav.Route      `json:"routes"`
}

// Nav handles GET /api/nav?path=/store
func (h *SessionHandler) Nav(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}
	id.CashierName = id.DisplayName()

	WriteJSON(w, http.StatusOK, NavResponse{
		Cashier: id,
		Routes:  nav.Active(r.URL.Query().Get("path")),
	}, h.log)
}

// LogoutResponse tells the client where to go next
type LogoutResponse struct {
	Redirect string `json:"redirect"`
}

// Logout handles POST /api/logout
// It ends the session and discards the cashier's terminal
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}

	h.registry.Logout(id.CashierID)
	h.store.Logout(id)
	h.log.Info("cashier_logged_out", zap.String("cashier_id", id.CashierID))

	WriteJSON(w, http.StatusOK, LogoutResponse{Redirect: nav.LoginPath}, h.log)
}
