package handlers

import (
	"net/http"
	"testing"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/search"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreHandler_ListItems(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{"all items", "", http.StatusOK, 10},
		{"hide out of stock", "?hideOutOfStock=true", http.StatusOK, 9},
		{"search text", "?q=PIZZA", http.StatusOK, 3},
		{"one category", "?category=Salad", http.StatusOK, 3},
		{"two categories", "?category=Salad&category=Burger", http.StatusOK, 4},
		{"all sentinel", "?category=All", http.StatusOK, 10},
		{"search within category", "?q=waffle&category=Waffle&hideOutOfStock=1", http.StatusOK, 3},
		{"no match", "?q=sushi", http.StatusOK, 0},
		{"bad bool", "?hideOutOfStock=maybe", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodGet, "/api/store/items"+tt.query, nil)
			require.Equal(t, tt.expectedStatus, rr.Code, "body: %s", rr.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}
			items := decodeBody[[]service.ListedItem](t, rr)
			assert.Len(t, items, tt.expectedCount)
		})
	}
}

func TestStoreHandler_ListItemsReflectsCart(t *testing.T) {
	api := newTestAPI(t, nil)

	// Veggie Pizza has 3 in stock
	api.do(t, http.MethodPost, "/api/cart/items", map[string]string{"itemId": "9"})

	rr := api.do(t, http.MethodGet, "/api/store/items?q=veggie", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decodeBody[[]service.ListedItem](t, rr)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Available)
	assert.Equal(t, search.BadgeLowStock, items[0].Badge)
	assert.Equal(t, "Pizza", items[0].CategoryName)
	assert.Equal(t, []search.Fragment{{Text: "Veggie", Match: true}, {Text: " Pizza"}}, items[0].NameFragments)

	rr = api.doWithKey(t, "bare", http.MethodGet, "/api/store/items?q=veggie", nil)
	items = decodeBody[[]service.ListedItem](t, rr)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Available, "another cashier sees full availability")
}

func TestStoreHandler_GetItem(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/api/store/items/10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	item := decodeBody[models.InventoryItem](t, rr)
	assert.Equal(t, "Classic Burger", item.Name)

	rr = api.do(t, http.MethodGet, "/api/store/items/404", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoreHandler_CategoriesAndStatus(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/api/store/categories", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cats := decodeBody[CategoriesResponse](t, rr)
	assert.Len(t, cats.Categories, 4)
	require.Len(t, cats.Counts, 5)
	assert.Equal(t, search.CategoryCount{Name: search.AllCategories, Count: 10}, cats.Counts[0])
	assert.Equal(t, "Burger", cats.Counts[1].Name)
	assert.Equal(t, "#264653", cats.Counts[1].Color)
	assert.Equal(t, 1, cats.Counts[1].Count)

	rr = api.do(t, http.MethodGet, "/api/store/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decodeBody[service.CatalogStatus](t, rr)
	assert.False(t, status.Loading)
	assert.False(t, status.TimedOut)
	assert.Equal(t, 10, status.Items)
	assert.Equal(t, 4, status.Categories)
}
