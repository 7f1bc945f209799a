package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductRepository defines the interface for catalog data access
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.InventoryItem, error)
	GetByID(ctx context.Context, id string) (*models.InventoryItem, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

// StockDeductor removes sold units from the catalog
type StockDeductor interface {
	DeductStock(ctx context.Context, lines []models.CartLine) error
}

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	mu         sync.RWMutex
	products   map[string]models.InventoryItem
	categories []models.Category
}

// NewInMemoryProductRepository creates a new in-memory product repository with seed data
func NewInMemoryProductRepository() *InMemoryProductRepository {
	price := decimal.RequireFromString

	categories := []models.Category{
		{ID: "c1", Name: "Waffle", Color: "#F4A261"},
		{ID: "c2", Name: "Salad", Color: "#2A9D8F"},
		{ID: "c3", Name: "Pizza", Color: "#E76F51"},
		{ID: "c4", Name: "Burger", Color: "#264653 "},
	}

	products := map[string]models.InventoryItem{
		"1":  {ID: "1", Name: "Chicken Waffle", Description: "Fried chicken on a buttermilk waffle", Price: price("12.99"), Cost: price("5.10"), Stock: 12, CategoryID: "c1"},
		"2":  {ID: "2", Name: "Belgian Waffle", Description: "Classic waffle with maple syrup", Price: price("10.99"), Cost: price("3.40"), Stock: 20, CategoryID: "c1"},
		"3":  {ID: "3", Name: "Chocolate Waffle", Description: "Cocoa batter with chocolate drizzle", Price: price("11.99"), Cost: price("3.90"), Stock: 4, CategoryID: "c1"},
		"4":  {ID: "4", Name: "Caesar Salad", Description: "Romaine, parmesan and croutons", Price: price("8.99"), Cost: price("2.80"), Stock: 15, CategoryID: "c2"},
		"5":  {ID: "5", Name: "Greek Salad", Description: "Feta, olives and cucumber", Price: price("9.49"), Cost: price("3.00"), Stock: 0, CategoryID: "c2"},
		"6":  {ID: "6", Name: "Garden Salad", Description: "Mixed greens with vinaigrette", Price: price("7.99"), Cost: price("2.10"), Stock: 9, CategoryID: "c2"},
		"7":  {ID: "7", Name: "Margherita Pizza", Description: "Tomato, mozzarella and basil", Price: price("14.99"), Cost: price("4.50"), Stock: 10, CategoryID: "c3"},
		"8":  {ID: "8", Name: "Pepperoni Pizza", Description: "Pepperoni and mozzarella", Price: price("16.99"), Cost: price("5.20"), Stock: 8, CategoryID: "c3"},
		"9":  {ID: "9", Name: "Veggie Pizza", Description: "Peppers, onions and mushrooms", Price: price("15.49"), Cost: price("4.80"), Stock: 3, CategoryID: "c3"},
		"10": {ID: "10", Name: "Classic Burger", Description: "Beef patty with cheddar", Price: price("13.99"), Cost: price("4.95"), Stock: 25, CategoryID: "c4"},
	}

	return &InMemoryProductRepository{
		products:   products,
		categories: categories,
	}
}

// NewInMemoryProductRepositoryWith creates a repository holding exactly the given data
func NewInMemoryProductRepositoryWith(items []models.InventoryItem, categories []models.Category) *InMemoryProductRepository {
	products := make(map[string]models.InventoryItem, len(items))
	for _, item := range items {
		products[item.ID] = item
	}
	return &InMemoryProductRepository{
		products:   products,
		categories: append([]models.Category(nil), categories...),
	}
}

// GetAll returns all products ordered by ID
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.InventoryItem, 0, len(r.products))
	for _, product := range r.products {
		products = append(products, product)
	}
	sortItems(products)
	return products, nil
}

// GetByID returns a product by its ID
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Categories returns all categories
func (r *InMemoryProductRepository) Categories(ctx context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.Category(nil), r.categories...), nil
}

// DeductStock removes the line quantities from stock, all or nothing
func (r *InMemoryProductRepository) DeductStock(ctx context.Context, lines []models.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	need := make(map[string]int, len(lines))
	for _, l := range lines {
		need[l.ID] += l.Quantity
	}
	for id, qty := range need {
		product, ok := r.products[id]
		if !ok {
			return ErrProductNotFound
		}
		if product.Stock < qty {
			return ErrInsufficientStock
		}
	}
	for id, qty := range need {
		product := r.products[id]
		product.Stock -= qty
		r.products[id] = product
	}
	return nil
}

// sortItems orders numeric IDs numerically and the rest lexically
func sortItems(items []models.InventoryItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].ID, items[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
