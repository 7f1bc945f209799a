package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
)

// MemoryFeed serves snapshots of a product repository. Publish re-reads the
// repository and pushes a fresh snapshot to every subscriber. Reads and
// broadcasts are serialized, so subscribers never end on an older snapshot.
type MemoryFeed struct {
	mu         sync.Mutex
	repo       repository.ProductRepository
	items      broadcaster[[]models.InventoryItem]
	categories broadcaster[[]models.Category]
}

func NewMemoryFeed(repo repository.ProductRepository) *MemoryFeed {
	return &MemoryFeed{repo: repo}
}

func (f *MemoryFeed) SubscribeItems(ctx context.Context, onUpdate func([]models.InventoryItem)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return f.items.subscribe(onUpdate, items), nil
}

func (f *MemoryFeed) SubscribeCategories(ctx context.Context, onUpdate func([]models.Category)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	categories, err := f.repo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return f.categories.subscribe(onUpdate, categories), nil
}

// Publish broadcasts the repository's current items and categories and
// returns once every subscriber has applied them, or ctx is done
func (f *MemoryFeed) Publish(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	categories, err := f.repo.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	applied := f.items.publish(items)
	applied = append(applied, f.categories.publish(categories)...)
	return waitApplied(ctx, applied)
}

// Subscribers returns the number of live item and category subscriptions
func (f *MemoryFeed) Subscribers() (items, categories int) {
	return f.items.len(), f.categories.len()
}
