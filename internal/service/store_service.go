package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/metrics"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	ErrNoIdentity         = errors.New("no cashier identity")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrSubmissionFailed   = errors.New("failed to place order, please try again")
	ErrItemNotFound       = errors.New("item not found")
)

// Catalog is the storefront's read view of inventory
type Catalog interface {
	Item(id string) (models.InventoryItem, bool)
	Stock(id string) (int, bool)
}

// Terminal is one cashier's storefront state
type Terminal struct {
	mu             sync.Mutex
	identity       session.Identity
	ledger         cart.Ledger
	orderType      models.OrderType
	discountCode   string
	discount       *models.Discount
	discountAmount decimal.Decimal
	confirmOpen    bool
	submitting     bool
	lastOrderID    string
}

func newTerminal(id session.Identity) *Terminal {
	return &Terminal{
		identity:  id,
		orderType: models.DefaultOrderType,
	}
}

// LineView is a cart line with its live availability
type LineView struct {
	models.CartLine
	LineTotal decimal.Decimal `json:"lineTotal"`
	Available int             `json:"available"`
}

// CartSnapshot is a consistent copy of a terminal's state
type CartSnapshot struct {
	CashierID      string           `json:"cashierId"`
	CashierName    string           `json:"cashierName"`
	Lines          []LineView       `json:"lines"`
	ItemCount      int              `json:"itemCount"`
	CategoryIDs    []string         `json:"categoryIds"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountCode   string           `json:"discountCode,omitempty"`
	Discount       *models.Discount `json:"discount,omitempty"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	Total          decimal.Decimal  `json:"total"`
	OrderType      models.OrderType `json:"orderType"`
	ConfirmOpen    bool             `json:"confirmOpen"`
	Submitting     bool             `json:"submitting"`
	LastOrderID    string           `json:"lastOrderId,omitempty"`
}

// StoreService keeps one terminal per cashier
type StoreService struct {
	catalog  Catalog
	resolver coupon.Resolver
	creator  OrderCreator
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu        sync.Mutex
	terminals map[string]*Terminal
}

func NewStoreService(catalog Catalog, resolver coupon.Resolver, creator OrderCreator, m *metrics.Metrics, log *zap.Logger) *StoreService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreService{
		catalog:   catalog,
		resolver:  resolver,
		creator:   creator,
		metrics:   m,
		log:       log,
		terminals: make(map[string]*Terminal),
	}
}

// terminal returns the cashier's terminal, creating it on first use
func (s *StoreService) terminal(id session.Identity) (*Terminal, error) {
	if id.CashierID == "" {
		return nil, ErrNoIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.terminals[id.CashierID]
	if !ok {
		t = newTerminal(id)
		s.terminals[id.CashierID] = t
		s.log.Info("terminal_opened", zap.String("cashier_id", id.CashierID))
		return t, nil
	}

	t.mu.Lock()
	t.identity = id
	t.mu.Unlock()
	return t, nil
}

// Terminals is the number of open terminals
func (s *StoreService) Terminals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.terminals)
}

// AddToCart reserves one unit of an item
func (s *StoreService) AddToCart(ctx context.Context, id session.Identity, itemID string) (CartSnapshot, error) {
	return s.mutateCart(ctx, id, "add", func(l cart.Ledger) (cart.Ledger, error) {
		item, ok := s.catalog.Item(itemID)
		if !ok {
			return l, ErrItemNotFound
		}
		return l.Add(item, s.catalog)
	})
}

// UpdateQuantity changes a line by delta; reaching zero removes it
func (s *StoreService) UpdateQuantity(ctx context.Context, id session.Identity, itemID string, delta int) (CartSnapshot, error) {
	return s.mutateCart(ctx, id, "update", func(l cart.Ledger) (cart.Ledger, error) {
		return l.UpdateQuantity(itemID, delta, s.catalog)
	})
}

// ClearCart empties the cart
func (s *StoreService) ClearCart(ctx context.Context, id session.Identity) (CartSnapshot, error) {
	return s.mutateCart(ctx, id, "clear", func(l cart.Ledger) (cart.Ledger, error) {
		return l.Clear(), nil
	})
}

func (s *StoreService) mutateCart(ctx context.Context, id session.Identity, action string, fn func(cart.Ledger) (cart.Ledger, error)) (CartSnapshot, error) {
	t, err := s.terminal(id)
	if err != nil {
		return CartSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.submitting {
		s.metrics.CartMutation(action, metrics.OutcomeRejected)
		return s.snapshotLocked(t), ErrSubmissionInFlight
	}

	next, err := fn(t.ledger)
	if err != nil {
		s.metrics.CartMutation(action, metrics.OutcomeRejected)
		return s.snapshotLocked(t), err
	}

	t.ledger = next
	s.recomputeDiscountLocked(ctx, t)
	if t.ledger.IsEmpty() {
		t.confirmOpen = false
	}
	s.metrics.CartMutation(action, metrics.OutcomeSuccess)
	return s.snapshotLocked(t), nil
}

// recomputeDiscountLocked re-resolves the applied code against the current
// ledger; a code that no longer applies resets the discount.
func (s *StoreService) recomputeDiscountLocked(ctx context.Context, t *Terminal) {
	if t.discountCode == "" {
		return
	}

	d, err := s.resolver.Resolve(ctx, t.discountCode, t.ledger.Subtotal(), t.ledger.CategoryIDs())
	if err != nil || d == nil {
		logger.FromContext(ctx).Info("discount_reset",
			zap.String("cashier_id", t.identity.CashierID),
			zap.String("code", t.discountCode),
			zap.Error(err),
		)
		s.resetDiscountLocked(t)
		return
	}
	t.discount = d
	t.discountAmount = d.Amount
}

func (s *StoreService) resetDiscountLocked(t *Terminal) {
	t.discountCode = ""
	t.discount = nil
	t.discountAmount = decimal.Zero
}

// ApplyDiscount resolves a code against the cart. An empty code clears the
// discount; an invalid one clears it and returns coupon.ErrInvalidCode.
func (s *StoreService) ApplyDiscount(ctx context.Context, id session.Identity, code string) (CartSnapshot, error) {
	t, err := s.terminal(id)
	if err != nil {
		return CartSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.submitting {
		return s.snapshotLocked(t), ErrSubmissionInFlight
	}

	code = coupon.NormalizeCode(code)
	if code == "" {
		s.resetDiscountLocked(t)
		s.metrics.DiscountResolution(metrics.OutcomeCleared)
		return s.snapshotLocked(t), nil
	}

	d, err := s.resolver.Resolve(ctx, code, t.ledger.Subtotal(), t.ledger.CategoryIDs())
	if err == nil && d == nil {
		err = coupon.ErrInvalidCode
	}
	if err != nil {
		s.resetDiscountLocked(t)
		s.metrics.DiscountResolution(metrics.OutcomeRejected)
		return s.snapshotLocked(t), err
	}

	t.discountCode = d.Code
	t.discount = d
	t.discountAmount = d.Amount
	s.metrics.DiscountResolution(metrics.OutcomeSuccess)
	return s.snapshotLocked(t), nil
}

func (s *StoreService) ClearDiscount(ctx context.Context, id session.Identity) (CartSnapshot, error) {
	return s.ApplyDiscount(ctx, id, "")
}

func (s *StoreService) SetOrderType(ctx context.Context, id session.Identity, orderType models.OrderType) (CartSnapshot, error) {
	t, err := s.terminal(id)
	if err != nil {
		return CartSnapshot{}, err
	}
	parsed, err := models.ParseOrderType(string(orderType))
	if err != nil {
		return CartSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitting {
		return s.snapshotLocked(t), ErrSubmissionInFlight
	}
	t.orderType = parsed
	return s.snapshotLocked(t), nil
}

// RequestCheckout opens the confirmation prompt
func (s *StoreService) RequestCheckout(ctx context.Context, id session.Identity) (CartSnapshot, error) {
	t, err := s.terminal(id)
	if err != nil {
		return CartSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ledger.IsEmpty() {
		return s.snapshotLocked(t), ErrEmptyCart
	}
	t.confirmOpen = true
	return s.snapshotLocked(t), nil
}

// CancelCheckout closes the confirmation prompt
func (s *StoreService) CancelCheckout(ctx context.Context, id session.Identity) (CartSnapshot, error) {
	t, err := s.terminal(id)
	if err != nil {
		return CartSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.confirmOpen = false
	return s.snapshotLocked(t), nil
}

// ConfirmCheckout submits the cart as an order. It refuses without an
// identity, with an empty cart, or while another submission is in flight;
// none of those reach the order creator. On failure the cart is kept.
func (s *StoreService) ConfirmCheckout(ctx context.Context, id session.Identity) (string, CartSnapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "StoreService.ConfirmCheckout")
	defer span.End()

	t, err := s.terminal(id)
	if err != nil {
		s.metrics.OrderSubmission(metrics.OutcomeRejected)
		return "", CartSnapshot{}, err
	}

	t.mu.Lock()
	if t.ledger.IsEmpty() {
		snap := s.snapshotLocked(t)
		t.mu.Unlock()
		s.metrics.OrderSubmission(metrics.OutcomeRejected)
		return "", snap, ErrEmptyCart
	}
	if t.submitting {
		snap := s.snapshotLocked(t)
		t.mu.Unlock()
		s.metrics.OrderSubmission(metrics.OutcomeRejected)
		return "", snap, ErrSubmissionInFlight
	}
	t.submitting = true
	subtotal := t.ledger.Subtotal()
	req := models.CreateOrderRequest{
		Lines:          t.ledger.Lines(),
		Subtotal:       subtotal,
		DiscountAmount: t.discountAmount,
		DiscountCode:   t.discountCode,
		Total:          subtotal.Sub(t.discountAmount),
		CashierName:    t.identity.DisplayName(),
		CashierID:      t.identity.CashierID,
		OrderType:      t.orderType,
	}
	t.mu.Unlock()

	span.SetAttributes(
		attribute.String("cashier.id", req.CashierID),
		attribute.Int("order.lines", len(req.Lines)),
	)

	orderID, err := s.creator.CreateOrder(ctx, req)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitting = false

	log := logger.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.OrderSubmission(metrics.OutcomeFailure)
		log.Error("order_submission_failed", zap.String("cashier_id", req.CashierID), zap.Error(err))
		return "", s.snapshotLocked(t), fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	t.lastOrderID = orderID
	t.ledger = t.ledger.Clear()
	s.resetDiscountLocked(t)
	t.confirmOpen = false

	span.SetAttributes(attribute.String("order.id", orderID))
	s.metrics.OrderSubmission(metrics.OutcomeSuccess)
	log.Info("order_submitted", zap.String("cashier_id", req.CashierID), zap.String("order_id", orderID))
	return orderID, s.snapshotLocked(t), nil
}

// Snapshot returns the cashier's current state
func (s *StoreService) Snapshot(id session.Identity) (CartSnapshot, error) {
	t, err := s.terminal(id)
	if err != nil {
		return CartSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return s.snapshotLocked(t), nil
}

// Ledger returns the cashier's current ledger value
func (s *StoreService) Ledger(id session.Identity) (cart.Ledger, error) {
	t, err := s.terminal(id)
	if err != nil {
		return cart.Ledger{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger, nil
}

// Available is the stock left for an item after the cashier's cart
func (s *StoreService) Available(id session.Identity, itemID string) int {
	ledger, err := s.Ledger(id)
	if err != nil {
		return 0
	}
	return cart.AvailableStock(s.catalog, ledger, itemID)
}

// Logout discards the cashier's terminal
func (s *StoreService) Logout(id session.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.terminals[id.CashierID]; !ok {
		return false
	}
	delete(s.terminals, id.CashierID)
	s.log.Info("terminal_closed", zap.String("cashier_id", id.CashierID))
	return true
}

func (s *StoreService) snapshotLocked(t *Terminal) CartSnapshot {
	lines := t.ledger.Lines()
	views := make([]LineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, LineView{
			CartLine:  l,
			LineTotal: l.LineTotal(),
			Available: cart.AvailableStock(s.catalog, t.ledger, l.ID),
		})
	}

	subtotal := t.ledger.Subtotal()
	var discount *models.Discount
	if t.discount != nil {
		d := *t.discount
		discount = &d
	}

	return CartSnapshot{
		CashierID:      t.identity.CashierID,
		CashierName:    t.identity.DisplayName(),
		Lines:          views,
		ItemCount:      t.ledger.TotalQuantity(),
		CategoryIDs:    t.ledger.CategoryIDs(),
		Subtotal:       subtotal,
		DiscountCode:   t.discountCode,
		Discount:       discount,
		DiscountAmount: t.discountAmount,
		Total:          subtotal.Sub(t.discountAmount),
		OrderType:      t.orderType,
		ConfirmOpen:    t.confirmOpen,
		Submitting:     t.submitting,
		LastOrderID:    t.lastOrderID,
	}
}
