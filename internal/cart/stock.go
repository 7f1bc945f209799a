package cart

// StockLookup reports catalog stock for an item id
type StockLookup interface {
	Stock(id string) (int, bool)
}

// StockFunc adapts a function to StockLookup
type StockFunc func(id string) (int, bool)

func (f StockFunc) Stock(id string) (int, bool) { return f(id) }

// AvailableStock is the catalog stock minus what the ledger already holds,
// never negative. Unknown items have nothing available.
func AvailableStock(stock StockLookup, ledger Ledger, id string) int {
	catalogStock, ok := stock.Stock(id)
	if !ok {
		return 0
	}
	available := catalogStock - ledger.Quantity(id)
	if available < 0 {
		return 0
	}
	return available
}
