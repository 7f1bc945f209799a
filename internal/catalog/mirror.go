package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"go.uber.org/zap"
)

// DefaultLoadTimeout bounds how long the mirror reports loading before it
// gives up waiting for the first item delivery.
const DefaultLoadTimeout = 10 * time.Second

var (
	ErrAlreadyStarted = errors.New("catalog: mirror already started")
	ErrClosed         = errors.New("catalog: mirror closed")
	ErrLoadTimeout    = errors.New("catalog: load timed out")
)

// Mirror is a read-only local cache of the catalog fed by subscriptions.
type Mirror struct {
	itemFeed     ItemFeed
	categoryFeed CategoryFeed
	loadTimeout  time.Duration
	log          *zap.Logger

	mu         sync.RWMutex
	items      []models.InventoryItem
	itemIndex  map[string]int
	categories []models.Category
	catIndex   map[string]int
	loading    bool
	timedOut   bool
	started    bool
	closed     bool
	timer      *time.Timer
	unsubs     []func()
	listeners  []func()
	updatedAt  time.Time
	received   bool

	// loaded is closed when loading ends by data, timeout or Close
	loaded     chan struct{}
	loadedOnce sync.Once
}

// NewMirror creates a mirror; a non-positive timeout uses DefaultLoadTimeout.
func NewMirror(items ItemFeed, categories CategoryFeed, loadTimeout time.Duration, log *zap.Logger) *Mirror {
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		itemFeed:     items,
		categoryFeed: categories,
		loadTimeout:  loadTimeout,
		log:          log,
		itemIndex:    map[string]int{},
		catIndex:     map[string]int{},
		loaded:       make(chan struct{}),
	}
}

// OnUpdate registers a callback run after every applied delivery. A listener
// added after Start runs from the next delivery on.
func (m *Mirror) OnUpdate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start subscribes to both feeds and arms the load timeout.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.loading = true
	m.timer = time.AfterFunc(m.loadTimeout, m.expireLoading)
	m.mu.Unlock()

	m.log.Info("catalog_subscribe_start", zap.Duration("load_timeout", m.loadTimeout))

	unsubItems, err := m.itemFeed.SubscribeItems(ctx, m.setItems)
	if err != nil {
		m.Close()
		return fmt.Errorf("catalog: subscribe items: %w", err)
	}
	m.addUnsubscribe(unsubItems)

	unsubCategories, err := m.categoryFeed.SubscribeCategories(ctx, m.setCategories)
	if err != nil {
		m.Close()
		return fmt.Errorf("catalog: subscribe categories: %w", err)
	}
	m.addUnsubscribe(unsubCategories)

	return nil
}

func (m *Mirror) addUnsubscribe(fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		fn()
		return
	}
	m.unsubs = append(m.unsubs, fn)
	m.mu.Unlock()
}

// Close unsubscribes from both feeds. No delivery mutates the mirror afterwards.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.loading = false
	if m.timer != nil {
		m.timer.Stop()
	}
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()
	m.endLoading()

	for _, unsub := range unsubs {
		unsub()
	}
	m.log.Info("catalog_unsubscribed")
}

func (m *Mirror) expireLoading() {
	m.mu.Lock()
	if !m.loading {
		m.mu.Unlock()
		return
	}
	m.loading = false
	m.timedOut = true
	m.mu.Unlock()
	m.endLoading()

	m.log.Warn("catalog_load_timeout", zap.Duration("timeout", m.loadTimeout))
}

func (m *Mirror) setItems(items []models.InventoryItem) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.items = append(make([]models.InventoryItem, 0, len(items)), items...)
	m.itemIndex = make(map[string]int, len(items))
	for i, item := range m.items {
		m.itemIndex[item.ID] = i
	}
	m.loading = false
	m.received = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.updatedAt = time.Now().UTC()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	m.endLoading()

	m.log.Debug("catalog_items_received", zap.Int("count", len(items)))
	for _, fn := range listeners {
		fn()
	}
}

func (m *Mirror) setCategories(categories []models.Category) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.categories = append(make([]models.Category, 0, len(categories)), categories...)
	m.catIndex = make(map[string]int, len(categories))
	for i, c := range m.categories {
		m.catIndex[c.ID] = i
	}
	m.updatedAt = time.Now().UTC()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()

	m.log.Debug("catalog_categories_received", zap.Int("count", len(categories)))
	for _, fn := range listeners {
		fn()
	}
}

func (m *Mirror) endLoading() {
	m.loadedOnce.Do(func() { close(m.loaded) })
}

// WaitLoaded blocks until the first item delivery has been applied. It
// returns ErrLoadTimeout or ErrClosed when loading ended without data.
func (m *Mirror) WaitLoaded(ctx context.Context) error {
	select {
	case <-m.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.received:
		return nil
	case m.timedOut:
		return ErrLoadTimeout
	default:
		return ErrClosed
	}
}

// Loading is true between Start and the first item delivery or the timeout.
func (m *Mirror) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// TimedOut reports whether loading ended by timeout rather than by data.
func (m *Mirror) TimedOut() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timedOut
}

// UpdatedAt is the time of the last applied delivery.
func (m *Mirror) UpdatedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedAt
}

func (m *Mirror) Items() []models.InventoryItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.InventoryItem(nil), m.items...)
}

func (m *Mirror) Item(id string) (models.InventoryItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.itemIndex[id]
	if !ok {
		return models.InventoryItem{}, false
	}
	return m.items[i], true
}

// Stock returns the mirrored catalog stock for an item.
func (m *Mirror) Stock(id string) (int, bool) {
	item, ok := m.Item(id)
	if !ok {
		return 0, false
	}
	return item.Stock, true
}

func (m *Mirror) Categories() []models.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Category(nil), m.categories...)
}

func (m *Mirror) Category(id string) (models.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.catIndex[id]
	if !ok {
		return models.Category{}, false
	}
	return m.categories[i], true
}

// CategoryName resolves a category id, or "Unknown".
func (m *Mirror) CategoryName(id string) string {
	if c, ok := m.Category(id); ok {
		return c.Name
	}
	return models.UnknownCategoryName
}

// CategoryColor resolves a category id to its trimmed color, or "transparent".
func (m *Mirror) CategoryColor(id string) string {
	if c, ok := m.Category(id); ok {
		return c.DisplayColor()
	}
	return models.UnknownCategoryColor
}
