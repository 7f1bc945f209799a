package cart

import (
	"testing"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testCatalog() map[string]models.InventoryItem {
	return map[string]models.InventoryItem{
		"1": {ID: "1", Name: "Chicken Waffle", Price: decimal.RequireFromString("12.50"), Stock: 3, CategoryID: "c1"},
		"2": {ID: "2", Name: "Caesar Salad", Price: decimal.RequireFromString("8.00"), Stock: 1, CategoryID: "c2"},
		"3": {ID: "3", Name: "Belgian Waffle", Price: decimal.RequireFromString("10.00"), Stock: 0, CategoryID: "c1"},
	}
}

func lookup(items map[string]models.InventoryItem) StockLookup {
	return StockFunc(func(id string) (int, bool) {
		item, ok := items[id]
		return item.Stock, ok
	})
}

func TestAvailableStock(t *testing.T) {
	items := testCatalog()
	stock := lookup(items)

	ledger, err := Ledger{}.Add(items["1"], stock)
	require.NoError(t, err)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"partially reserved", "1", 2},
		{"not in cart", "2", 1},
		{"no stock", "3", 0},
		{"unknown item", "404", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvailableStock(stock, ledger, tt.id))
		})
	}
}

func TestAvailableStock_NeverNegative(t *testing.T) {
	ledger := NewLedger(models.CartLine{ID: "1", Quantity: 5})
	stock := StockFunc(func(string) (int, bool) { return 2, true })

	assert.Equal(t, 0, AvailableStock(stock, ledger, "1"))
}

func TestLedger_Add(t *testing.T) {
	items := testCatalog()
	stock := lookup(items)

	ledger, err := Ledger{}.Add(items["1"], stock)
	require.NoError(t, err)
	ledger, err = ledger.Add(items["2"], stock)
	require.NoError(t, err)
	ledger, err = ledger.Add(items["1"], stock)
	require.NoError(t, err)

	lines := ledger.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0].ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 3, lines[0].OriginalStock)
	assert.Equal(t, "2", lines[1].ID)
	assert.Equal(t, 1, lines[1].Quantity)

	same, err := ledger.Add(items["2"], stock)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, ledger.Lines(), same.Lines())

	_, err = ledger.Add(items["3"], stock)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestLedger_UpdateQuantity(t *testing.T) {
	items := testCatalog()
	stock := lookup(items)

	base, err := Ledger{}.Add(items["1"], stock)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		delta   int
		wantQty int
		wantLen int
		wantErr error
	}{
		{"increment", "1", 1, 2, 1, nil},
		{"increment to stock", "1", 2, 3, 1, nil},
		{"increment past stock", "1", 3, 1, 1, ErrOutOfStock},
		{"decrement removes", "1", -1, 0, 0, nil},
		{"large decrement removes", "1", -10, 0, 0, nil},
		{"zero delta", "1", 0, 1, 1, nil},
		{"missing line", "2", 1, 0, 1, ErrLineNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.UpdateQuantity(tt.id, tt.delta, stock)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantLen, got.Len())
			assert.Equal(t, tt.wantQty, got.Quantity(tt.id))
			assert.Equal(t, 1, base.Quantity("1"), "base ledger must not change")
		})
	}
}

func TestLedger_Totals(t *testing.T) {
	ledger := NewLedger(
		models.CartLine{ID: "1", Price: decimal.RequireFromString("12.50"), Quantity: 2, CategoryID: "c1"},
		models.CartLine{ID: "2", Price: decimal.RequireFromString("8.00"), Quantity: 1, CategoryID: "c2"},
		models.CartLine{ID: "3", Price: decimal.RequireFromString("10.00"), Quantity: 1, CategoryID: "c1"},
		models.CartLine{ID: "4", Price: decimal.RequireFromString("1.00"), Quantity: 0, CategoryID: "c9"},
	)

	assert.Equal(t, 3, ledger.Len())
	assert.Equal(t, 4, ledger.TotalQuantity())
	assert.True(t, ledger.Subtotal().Equal(decimal.RequireFromString("43.00")))
	assert.Equal(t, []string{"c1", "c2"}, ledger.CategoryIDs())

	cleared := ledger.Clear()
	assert.True(t, cleared.IsEmpty())
	assert.True(t, cleared.Subtotal().IsZero())
	assert.Equal(t, 3, ledger.Len())
}

func TestLedger_LinesIsCopy(t *testing.T) {
	ledger := NewLedger(models.CartLine{ID: "1", Quantity: 1})
	lines := ledger.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, ledger.Quantity("1"))
}

func TestLedger_MutationsDoNotAlias(t *testing.T) {
	items := testCatalog()
	stock := lookup(items)

	first, err := Ledger{}.Add(items["1"], stock)
	require.NoError(t, err)
	second, err := first.Add(items["2"], stock)
	require.NoError(t, err)
	third, err := first.Add(items["1"], stock)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 1, first.Quantity("1"))
	assert.Equal(t, 2, second.Len())
	assert.Equal(t, 1, second.Quantity("1"))
	assert.Equal(t, 2, third.Quantity("1"))
	assert.Zero(t, third.Quantity("2"))
}

func TestLedger_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := []string{"a", "b", "c", "d"}
		items := make(map[string]models.InventoryItem, len(ids))
		for _, id := range ids {
			items[id] = models.InventoryItem{
				ID:         id,
				Price:      decimal.NewFromInt(int64(rapid.IntRange(1, 50).Draw(t, "price_"+id))),
				Stock:      rapid.IntRange(0, 6).Draw(t, "stock_"+id),
				CategoryID: "cat_" + id,
			}
		}
		stock := lookup(items)

		var ledger Ledger
		steps := rapid.IntRange(0, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			if rapid.Bool().Draw(t, "add") {
				ledger, _ = ledger.Add(items[id], stock)
			} else {
				delta := rapid.IntRange(-3, 3).Draw(t, "delta")
				ledger, _ = ledger.UpdateQuantity(id, delta, stock)
			}

			for _, line := range ledger.Lines() {
				if line.Quantity < 1 {
					t.Fatalf("line %s has quantity %d", line.ID, line.Quantity)
				}
				if line.Quantity > items[line.ID].Stock {
					t.Fatalf("line %s quantity %d exceeds stock %d", line.ID, line.Quantity, items[line.ID].Stock)
				}
			}
		}

		for _, line := range ledger.Lines() {
			removed, err := ledger.UpdateQuantity(line.ID, -line.Quantity, stock)
			if err != nil {
				t.Fatalf("remove %s: %v", line.ID, err)
			}
			if removed.Quantity(line.ID) != 0 || removed.Len() != ledger.Len()-1 {
				t.Fatalf("line %s not removed", line.ID)
			}
		}

		cleared := ledger.Clear()
		for _, id := range ids {
			if got := AvailableStock(stock, cleared, id); got != items[id].Stock {
				t.Fatalf("available %s after clear = %d, want %d", id, got, items[id].Stock)
			}
		}
	})
}
