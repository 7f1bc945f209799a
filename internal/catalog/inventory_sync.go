package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"go.uber.org/zap"
)

// seedTimeout bounds one seeding pass triggered by a delivery
const seedTimeout = 10 * time.Second

// InventorySeeder records stock rows for catalog items it does not track yet
type InventorySeeder interface {
	SeedInventory(ctx context.Context, items []models.InventoryItem) error
}

// SeedInventory keeps seeder in step with the mirror: every later delivery is
// seeded from a listener, and the first one is seeded before it returns. A
// load timeout is logged and left to the listener.
func SeedInventory(ctx context.Context, m *Mirror, seeder InventorySeeder, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	m.OnUpdate(func() {
		items := m.Items()
		if len(items) == 0 {
			return
		}
		seedCtx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		defer cancel()
		if err := seeder.SeedInventory(seedCtx, items); err != nil {
			log.Error("inventory_seed_failed", zap.Error(err))
		}
	})

	if err := m.WaitLoaded(ctx); err != nil {
		if errors.Is(err, ErrLoadTimeout) {
			log.Warn("inventory_seed_deferred", zap.Error(err))
			return nil
		}
		return err
	}

	items := m.Items()
	if err := seeder.SeedInventory(ctx, items); err != nil {
		return err
	}
	log.Info("inventory_seeded", zap.Int("items", len(items)))
	return nil
}
