package cart

import (
	"errors"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrOutOfStock   = errors.New("item out of stock")
	ErrLineNotFound = errors.New("item not in cart")
)

// Ledger is an ordered, immutable set of cart lines. Every mutation returns
// a new Ledger backed by a fresh slice; the zero value is an empty cart.
type Ledger struct {
	lines []models.CartLine
}

// NewLedger copies lines into a ledger, dropping non-positive quantities
func NewLedger(lines ...models.CartLine) Ledger {
	out := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return Ledger{lines: out}
}

// Add reserves one more unit of item. A new line snapshots the item's stock.
func (l Ledger) Add(item models.InventoryItem, stock StockLookup) (Ledger, error) {
	if AvailableStock(stock, l, item.ID) <= 0 {
		return l, ErrOutOfStock
	}

	lines := l.Lines()
	for i := range lines {
		if lines[i].ID == item.ID {
			lines[i].Quantity++
			return Ledger{lines: lines}, nil
		}
	}

	lines = append(lines, models.CartLine{
		ID:            item.ID,
		Name:          item.Name,
		Price:         item.Price,
		Cost:          item.Cost,
		Quantity:      1,
		OriginalStock: item.Stock,
		CategoryID:    item.CategoryID,
		ImageURL:      item.ImageURL,
	})
	return Ledger{lines: lines}, nil
}

// UpdateQuantity moves a line's quantity by delta. Increments need available
// stock; a line reaching zero is removed.
func (l Ledger) UpdateQuantity(id string, delta int, stock StockLookup) (Ledger, error) {
	idx := l.index(id)
	if idx < 0 {
		return l, ErrLineNotFound
	}
	if delta == 0 {
		return l, nil
	}
	if delta > 0 && AvailableStock(stock, l, id) < delta {
		return l, ErrOutOfStock
	}

	qty := l.lines[idx].Quantity + delta
	lines := make([]models.CartLine, 0, len(l.lines))
	for i, line := range l.lines {
		if i == idx {
			if qty <= 0 {
				continue
			}
			line.Quantity = qty
		}
		lines = append(lines, line)
	}
	return Ledger{lines: lines}, nil
}

// Clear returns an empty ledger
func (l Ledger) Clear() Ledger {
	return Ledger{lines: []models.CartLine{}}
}

func (l Ledger) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Quantity is the reserved quantity for an item, zero when absent
func (l Ledger) Quantity(id string) int {
	if idx := l.index(id); idx >= 0 {
		return l.lines[idx].Quantity
	}
	return 0
}

func (l Ledger) TotalQuantity() int {
	n := 0
	for _, line := range l.lines {
		n += line.Quantity
	}
	return n
}

// CategoryIDs lists the distinct category ids in first-seen order
func (l Ledger) CategoryIDs() []string {
	seen := make(map[string]struct{}, len(l.lines))
	ids := make([]string, 0, len(l.lines))
	for _, line := range l.lines {
		if _, ok := seen[line.CategoryID]; ok {
			continue
		}
		seen[line.CategoryID] = struct{}{}
		ids = append(ids, line.CategoryID)
	}
	return ids
}

// Lines returns a copy of the lines
func (l Ledger) Lines() []models.CartLine {
	return append(make([]models.CartLine, 0, len(l.lines)+1), l.lines...)
}

func (l Ledger) Len() int { return len(l.lines) }

func (l Ledger) IsEmpty() bool { return len(l.lines) == 0 }

func (l Ledger) index(id string) int {
	for i, line := range l.lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}
