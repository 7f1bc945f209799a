package catalog

import (
	"context"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
)

// MirrorRepository serves a mirror as a read-only product repository, for
// deployments where the catalog is owned by another service.
type MirrorRepository struct {
	mirror *Mirror
}

var _ repository.ProductRepository = MirrorRepository{}

func NewMirrorRepository(m *Mirror) MirrorRepository {
	return MirrorRepository{mirror: m}
}

func (r MirrorRepository) GetAll(ctx context.Context) ([]models.InventoryItem, error) {
	return r.mirror.Items(), nil
}

func (r MirrorRepository) GetByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	item, ok := r.mirror.Item(id)
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &item, nil
}

func (r MirrorRepository) Categories(ctx context.Context) ([]models.Category, error) {
	return r.mirror.Categories(), nil
}
