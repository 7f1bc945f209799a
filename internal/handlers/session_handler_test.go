package handlers

import (
	"net/http"
	"testing"

	"github.com/Lixing-Zhang/storefront/internal/nav"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandler_Nav(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/api/nav?path=/inventory/42", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[NavResponse](t, rr)
	assert.Equal(t, "cashier-1", resp.Cashier.CashierID)
	assert.Equal(t, "Front Counter", resp.Cashier.CashierName)
	require.Len(t, resp.Routes, 6)
	for _, route := range resp.Routes {
		assert.Equal(t, route.Path == "/inventory", route.Active, route.Label)
	}

	rr = api.doWithKey(t, "bare", http.MethodGet, "/api/nav", nil)
	resp = decodeBody[NavResponse](t, rr)
	assert.Equal(t, session.UnknownWorker, resp.Cashier.CashierName)
}

func TestSessionHandler_Logout(t *testing.T) {
	api := newTestAPI(t, nil)

	api.do(t, http.MethodPost, "/api/cart/items", map[string]string{"itemId": "1"})
	require.Len(t, api.registry.Active(), 1)
	require.Equal(t, 1, api.store.Terminals())

	rr := api.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, nav.LoginPath, decodeBody[LogoutResponse](t, rr).Redirect)
	assert.Equal(t, 0, api.store.Terminals(), "terminal is discarded")

	rr = api.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decodeBody[service.CartSnapshot](t, rr).ItemCount, "next use starts a fresh cart")
}
