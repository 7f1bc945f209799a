package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrInventoryNotTracked means the store holds no stock row for an item
	ErrInventoryNotTracked = errors.New("inventory not tracked for item")
)

// OrderRepository persists placed orders
type OrderRepository interface {
	Save(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
}

// InMemoryOrderRepository keeps orders in a map and deducts stock from the
// product repository in the same call
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	stock  StockDeductor
}

// NewInMemoryOrderRepository creates an order repository; stock may be nil
func NewInMemoryOrderRepository(stock StockDeductor) *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]models.Order),
		stock:  stock,
	}
}

// Save stores the order after deducting its stock
func (r *InMemoryOrderRepository) Save(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return ErrDuplicateOrder
	}

	if r.stock != nil {
		if err := r.stock.DeductStock(ctx, order.Lines); err != nil {
			return err
		}
	}

	stored := *order
	stored.Lines = append([]models.CartLine(nil), order.Lines...)
	r.orders[order.ID] = stored
	return nil
}

// GetByID returns a copy of the stored order
func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order.Lines = append([]models.CartLine(nil), order.Lines...)
	return &order, nil
}

// Count returns the number of stored orders
func (r *InMemoryOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
