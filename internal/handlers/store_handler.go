package handlers

import (
	"net/http"
	"strconv"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/search"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StoreHandler serves the catalog listing
type StoreHandler struct {
	catalog *service.CatalogService
	log     *zap.Logger
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(catalog *service.CatalogService, log *zap.Logger) *StoreHandler {
	return &StoreHandler{
		catalog: catalog,
		log:     log,
	}
}

// ListItems handles GET /api/store/items
// Query: q (search text), category (repeated), hideOutOfStock (bool)
func (h *StoreHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.log)
	if !ok {
		return
	}

	q := h.catalog.DefaultQuery()
	values := r.URL.Query()
	q.Text = values.Get("q")
	q.Categories = values["category"]
	if raw := values.Get("hideOutOfStock"); raw != "" {
		hide, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "hideOutOfStock must be a boolean", h.log)
			return
		}
		q.HideOutOfStock = hide
	}

	WriteJSON(w, http.StatusOK, h.catalog.ListItems(id, q), h.log)
}

// GetItem handles GET /api/store/items/{itemId}
func (h *StoreHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	item, ok := h.catalog.GetItem(itemID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Item not found", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, item, h.log)
}

// CategoriesResponse lists categories and the filter bar counts, which
// start with the "All" entry
type CategoriesResponse struct {
	Categories []models.Category      `json:"categories"`
	Counts     []search.CategoryCount `json:"counts"`
}

// Categories handles GET /api/store/categories
func (h *StoreHandler) Categories(w http.ResponseWriter, r *http.Request) {
	listing := h.catalog.Categories()
	counts := make([]search.CategoryCount, 0, len(listing.Counts)+1)
	counts = append(counts, search.CategoryCount{Name: search.AllCategories, Count: listing.Total})
	counts = append(counts, listing.Counts...)

	WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories: listing.Categories,
		Counts:     counts,
	}, h.log)
}

// Status handles GET /api/store/status
func (h *StoreHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.catalog.Status(), h.log)
}
