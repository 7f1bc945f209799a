package service

import (
	"time"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/search"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/internal/settings"
)

// CatalogView is the mirrored catalog as the listing needs it
type CatalogView interface {
	Catalog
	search.CategoryResolver
	Items() []models.InventoryItem
	Categories() []models.Category
	Loading() bool
	TimedOut() bool
	UpdatedAt() time.Time
}

// ListedItem is a search result with the cashier's availability
type ListedItem struct {
	search.Result
	Available int          `json:"available"`
	Badge     search.Badge `json:"badge"`
}

// CatalogStatus reports the mirror's load state
type CatalogStatus struct {
	Loading    bool      `json:"loading"`
	TimedOut   bool      `json:"timedOut"`
	Items      int       `json:"items"`
	Categories int       `json:"categories"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// CategoryListing is the category filter bar
type CategoryListing struct {
	Total      int                    `json:"total"`
	Categories []models.Category      `json:"categories"`
	Counts     []search.CategoryCount `json:"counts"`
}

// CatalogService serves the storefront listing
type CatalogService struct {
	view     CatalogView
	store    *StoreService
	settings settings.Settings
}

// NewCatalogService creates a new catalog service
func NewCatalogService(view CatalogView, store *StoreService, prefs settings.Settings) *CatalogService {
	return &CatalogService{
		view:     view,
		store:    store,
		settings: prefs,
	}
}

// DefaultQuery is the query used when a request sets no filters
func (s *CatalogService) DefaultQuery() search.Query {
	return search.Query{HideOutOfStock: s.settings.HideOutOfStock}
}

// ListItems filters the catalog and annotates the cashier's available stock
func (s *CatalogService) ListItems(id session.Identity, q search.Query) []ListedItem {
	ledger, err := s.store.Ledger(id)
	if err != nil {
		ledger = cart.Ledger{}
	}

	results := search.Filter(s.view.Items(), s.view, q)
	out := make([]ListedItem, 0, len(results))
	for _, r := range results {
		available := cart.AvailableStock(s.view, ledger, r.Item.ID)
		out = append(out, ListedItem{
			Result:    r,
			Available: available,
			Badge:     search.StockBadge(available),
		})
	}
	return out
}

// GetItem returns one mirrored item
func (s *CatalogService) GetItem(id string) (models.InventoryItem, bool) {
	return s.view.Item(id)
}

func (s *CatalogService) Categories() CategoryListing {
	items := s.view.Items()
	return CategoryListing{
		Total:      len(items),
		Categories: s.view.Categories(),
		Counts:     search.CategoryCounts(items, s.view),
	}
}

func (s *CatalogService) Status() CatalogStatus {
	return CatalogStatus{
		Loading:    s.view.Loading(),
		TimedOut:   s.view.TimedOut(),
		Items:      len(s.view.Items()),
		Categories: len(s.view.Categories()),
		UpdatedAt:  s.view.UpdatedAt(),
	}
}
