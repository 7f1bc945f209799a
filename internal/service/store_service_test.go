package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/coupon/coupontest"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cashier = session.Identity{CashierID: "cashier-1", CashierName: "Front Counter"}

type fakeCatalog map[string]models.InventoryItem

func (f fakeCatalog) Item(id string) (models.InventoryItem, bool) {
	item, ok := f[id]
	return item, ok
}

func (f fakeCatalog) Stock(id string) (int, bool) {
	item, ok := f[id]
	return item.Stock, ok
}

func testItems() fakeCatalog {
	return fakeCatalog{
		"1": {ID: "1", Name: "Chicken Waffle", Price: dec("50.00"), Stock: 2, CategoryID: "c1"},
		"2": {ID: "2", Name: "Caesar Salad", Price: dec("10.00"), Stock: 5, CategoryID: "c2"},
		"3": {ID: "3", Name: "Greek Salad", Price: dec("9.00"), Stock: 0, CategoryID: "c2"},
	}
}

// fakeCreator records calls; when block is set each call waits for release
type fakeCreator struct {
	calls   atomic.Int32
	block   bool
	started chan struct{}
	release chan struct{}
	err     error

	mu   sync.Mutex
	reqs []models.CreateOrderRequest
}

func newBlockingCreator() *fakeCreator {
	return &fakeCreator{block: true, started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (f *fakeCreator) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.block {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return "order-123", nil
}

func newStore(creator OrderCreator) *StoreService {
	return NewStoreService(testItems(), coupontest.FixedTable(), creator, nil, nil)
}

func TestStoreService_CartFlow(t *testing.T) {
	store := newStore(&fakeCreator{})
	ctx := context.Background()

	snap, err := store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ItemCount)
	assert.Equal(t, 1, snap.Lines[0].Available)
	assert.Equal(t, models.DefaultOrderType, snap.OrderType)

	_, err = store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)

	snap, err = store.AddToCart(ctx, cashier, "1")
	assert.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Equal(t, 2, snap.ItemCount, "rejected add leaves the cart unchanged")

	_, err = store.AddToCart(ctx, cashier, "3")
	assert.ErrorIs(t, err, cart.ErrOutOfStock)

	_, err = store.AddToCart(ctx, cashier, "404")
	assert.ErrorIs(t, err, ErrItemNotFound)

	snap, err = store.UpdateQuantity(ctx, cashier, "1", -2)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
	assert.Equal(t, 2, store.Available(cashier, "1"))

	_, err = store.AddToCart(ctx, cashier, "2")
	require.NoError(t, err)
	snap, err = store.ClearCart(ctx, cashier)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
	assert.True(t, snap.Total.IsZero())
}

func TestStoreService_NoIdentity(t *testing.T) {
	creator := &fakeCreator{}
	store := newStore(creator)

	_, err := store.AddToCart(context.Background(), session.Identity{}, "1")
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, _, err = store.ConfirmCheckout(context.Background(), session.Identity{CashierName: "No Id"})
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Zero(t, creator.calls.Load())
}

func TestStoreService_DiscountFixedTable(t *testing.T) {
	store := newStore(&fakeCreator{})
	ctx := context.Background()

	_, err := store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)
	_, err = store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)

	snap, err := store.ApplyDiscount(ctx, cashier, "save10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", snap.DiscountCode)
	assert.True(t, snap.DiscountAmount.Equal(dec("10.00")))
	assert.True(t, snap.Total.Equal(dec("90.00")))

	// the amount follows the cart
	snap, err = store.UpdateQuantity(ctx, cashier, "1", -1)
	require.NoError(t, err)
	assert.True(t, snap.DiscountAmount.Equal(dec("5.00")))
	assert.True(t, snap.Total.Equal(dec("45.00")))

	snap, err = store.ApplyDiscount(ctx, cashier, "FLAT50")
	require.NoError(t, err)
	assert.True(t, snap.DiscountAmount.Equal(dec("50.00")))
	assert.True(t, snap.Total.IsZero())

	snap, err = store.ApplyDiscount(ctx, cashier, "BOGUS")
	assert.ErrorIs(t, err, coupon.ErrInvalidCode)
	assert.Empty(t, snap.DiscountCode)
	assert.True(t, snap.DiscountAmount.IsZero())

	_, err = store.ApplyDiscount(ctx, cashier, "SAVE20")
	require.NoError(t, err)
	snap, err = store.ClearDiscount(ctx, cashier)
	require.NoError(t, err)
	assert.Empty(t, snap.DiscountCode)
	assert.True(t, snap.Total.Equal(dec("50.00")))
}

func TestStoreService_FlatDiscountClampsWhenCartShrinks(t *testing.T) {
	store := newStore(&fakeCreator{})
	ctx := context.Background()

	_, err := store.AddToCart(ctx, cashier, "2")
	require.NoError(t, err)
	_, err = store.AddToCart(ctx, cashier, "2")
	require.NoError(t, err)

	snap, err := store.ApplyDiscount(ctx, cashier, "FLAT50")
	require.NoError(t, err)
	assert.True(t, snap.DiscountAmount.Equal(dec("20.00")))

	snap, err = store.UpdateQuantity(ctx, cashier, "2", -1)
	require.NoError(t, err)
	assert.True(t, snap.DiscountAmount.Equal(dec("10.00")))
	assert.False(t, snap.Total.IsNegative())
}

func TestStoreService_ConfirmEmptyCartNeverCallsCreator(t *testing.T) {
	creator := &fakeCreator{}
	store := newStore(creator)

	_, _, err := store.ConfirmCheckout(context.Background(), cashier)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = store.RequestCheckout(context.Background(), cashier)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, creator.calls.Load())
}

func TestStoreService_ConfirmSuccess(t *testing.T) {
	creator := &fakeCreator{}
	store := newStore(creator)
	ctx := context.Background()

	_, err := store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)
	_, err = store.AddToCart(ctx, cashier, "2")
	require.NoError(t, err)
	_, err = store.ApplyDiscount(ctx, cashier, "SAVE10")
	require.NoError(t, err)
	_, err = store.SetOrderType(ctx, cashier, "dine-in")
	require.NoError(t, err)

	snap, err := store.RequestCheckout(ctx, cashier)
	require.NoError(t, err)
	assert.True(t, snap.ConfirmOpen)

	orderID, snap, err := store.ConfirmCheckout(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, "order-123", orderID)
	assert.Equal(t, "order-123", snap.LastOrderID)
	assert.Empty(t, snap.Lines)
	assert.Empty(t, snap.DiscountCode)
	assert.True(t, snap.DiscountAmount.IsZero())
	assert.False(t, snap.ConfirmOpen)
	assert.False(t, snap.Submitting)

	require.Len(t, creator.reqs, 1)
	req := creator.reqs[0]
	assert.Len(t, req.Lines, 2)
	assert.True(t, req.Subtotal.Equal(dec("60.00")))
	assert.True(t, req.DiscountAmount.Equal(dec("6.00")))
	assert.True(t, req.Total.Equal(dec("54.00")))
	assert.Equal(t, "SAVE10", req.DiscountCode)
	assert.Equal(t, models.OrderTypeDineIn, req.OrderType)
	assert.Equal(t, "Front Counter", req.CashierName)
	assert.Equal(t, "cashier-1", req.CashierID)
}

func TestStoreService_ConfirmFailureKeepsCart(t *testing.T) {
	backendErr := errors.New("order service unavailable")
	creator := &fakeCreator{err: backendErr}
	store := newStore(creator)
	ctx := context.Background()

	_, err := store.AddToCart(ctx, cashier, "2")
	require.NoError(t, err)
	_, err = store.ApplyDiscount(ctx, cashier, "SAVE20")
	require.NoError(t, err)
	_, err = store.RequestCheckout(ctx, cashier)
	require.NoError(t, err)

	_, snap, err := store.ConfirmCheckout(ctx, cashier)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "order service unavailable")

	assert.Len(t, snap.Lines, 1)
	assert.Equal(t, "SAVE20", snap.DiscountCode)
	assert.True(t, snap.ConfirmOpen)
	assert.False(t, snap.Submitting)

	// retry succeeds
	creator.err = nil
	orderID, _, err := store.ConfirmCheckout(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, "order-123", orderID)
	assert.Equal(t, int32(2), creator.calls.Load())
}

func TestStoreService_ConcurrentConfirmSubmitsOnce(t *testing.T) {
	creator := newBlockingCreator()
	store := newStore(creator)
	ctx := context.Background()

	_, err := store.AddToCart(ctx, cashier, "2")
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, _, err := store.ConfirmCheckout(ctx, cashier)
		firstDone <- err
	}()
	<-creator.started

	snap, err := store.Snapshot(cashier)
	require.NoError(t, err)
	assert.True(t, snap.Submitting)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.ConfirmCheckout(ctx, cashier)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
	}

	_, err = store.AddToCart(ctx, cashier, "2")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(creator.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), creator.calls.Load())
}

func TestStoreService_TerminalsAreIsolated(t *testing.T) {
	store := newStore(&fakeCreator{})
	other := session.Identity{CashierID: "cashier-2"}
	ctx := context.Background()

	_, err := store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)
	_, err = store.AddToCart(ctx, cashier, "1")
	require.NoError(t, err)

	snap, err := store.AddToCart(ctx, other, "1")
	require.NoError(t, err, "each terminal reconciles against catalog stock")
	assert.Equal(t, session.UnknownWorker, snap.CashierName)
	assert.Equal(t, 2, store.Terminals())

	assert.True(t, store.Logout(cashier))
	assert.False(t, store.Logout(cashier))
	assert.Equal(t, 1, store.Terminals())

	snap, err = store.Snapshot(cashier)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines, "logout discards the terminal")
}

func TestStoreService_SetOrderType(t *testing.T) {
	store := newStore(&fakeCreator{})

	snap, err := store.SetOrderType(context.Background(), cashier, "delivery")
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeDelivery, snap.OrderType)

	_, err = store.SetOrderType(context.Background(), cashier, "drive-thru")
	assert.ErrorIs(t, err, models.ErrInvalidOrderType)

	snap, err = store.CancelCheckout(context.Background(), cashier)
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeDelivery, snap.OrderType)
	assert.False(t, snap.ConfirmOpen)
}

func TestStoreService_SnapshotTotalsNeverNegative(t *testing.T) {
	store := newStore(&fakeCreator{})
	ctx := context.Background()

	for _, id := range []string{"2", "2", "1"} {
		_, err := store.AddToCart(ctx, cashier, id)
		require.NoError(t, err)
	}
	snap, err := store.ApplyDiscount(ctx, cashier, "FLAT50")
	require.NoError(t, err)

	for snap.ItemCount > 0 {
		snap, err = store.UpdateQuantity(ctx, cashier, snap.Lines[0].ID, -1)
		require.NoError(t, err)
		assert.True(t, snap.Total.GreaterThanOrEqual(decimal.Zero), "total %s", snap.Total)
	}
}
