package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/events"
	"github.com/Lixing-Zhang/storefront/internal/metrics"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/Lixing-Zhang/storefront/internal/service"

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrMissingCashier  = errors.New("cashier id is required")
	ErrInvalidTotals   = errors.New("order totals are inconsistent")
)

// OrderService validates, persists and announces orders
type OrderService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
	onPlaced  []func(context.Context, *models.Order)
}

// NewOrderService creates a new order service; publisher may be nil
func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		products:  products,
		orders:    orders,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// OnPlaced registers a hook run after an order is persisted
func (s *OrderService) OnPlaced(fn func(context.Context, *models.Order)) {
	s.onPlaced = append(s.onPlaced, fn)
}

// CreateOrder validates the request, stores the order and publishes order.placed
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	order, err := s.createOrder(ctx, req)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int("order.items", order.ItemCount()))
	}
	s.metrics.OrderCreated(outcome, time.Since(start))
	return order, err
}

func (s *OrderService) createOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:             generateOrderID(),
		Lines:          append([]models.CartLine(nil), req.Lines...),
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		DiscountCode:   req.DiscountCode,
		Total:          req.Total,
		OrderType:      req.OrderType,
		CashierName:    req.CashierName,
		CashierID:      req.CashierID,
		Status:         models.OrderStatusPlaced,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info("order_created",
		zap.String("order_id", order.ID),
		zap.String("cashier_id", order.CashierID),
		zap.Int("items", order.ItemCount()),
		zap.String("total", order.Total.StringFixed(2)),
	)

	if err := s.publisher.PublishOrderPlaced(ctx, events.NewOrderPlaced(order)); err != nil {
		s.metrics.EventPublishFailed(events.OrderPlacedRoutingKey)
		log.Error("order_event_publish_failed", zap.String("order_id", order.ID), zap.Error(err))
	}

	for _, fn := range s.onPlaced {
		fn(ctx, order)
	}
	return order, nil
}

func (s *OrderService) validate(ctx context.Context, req models.CreateOrderRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptyOrder
	}
	if req.CashierID == "" {
		return ErrMissingCashier
	}
	if !req.OrderType.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidOrderType, req.OrderType)
	}

	// Validate items against catalog prices (deduplicated lookups)
	prices := make(map[string]decimal.Decimal, len(req.Lines))
	subtotal := decimal.Zero
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		price, ok := prices[line.ID]
		if !ok {
			product, err := s.products.GetByID(ctx, line.ID)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidProduct, line.ID)
			}
			price = product.Price
			prices[line.ID] = price
		}
		if !line.Price.Equal(price) {
			return fmt.Errorf("%w: price mismatch for %s", ErrInvalidProduct, line.ID)
		}
		subtotal = subtotal.Add(line.LineTotal())
	}

	switch {
	case !req.Subtotal.Equal(subtotal):
		return fmt.Errorf("%w: subtotal %s, lines sum to %s", ErrInvalidTotals, req.Subtotal, subtotal)
	case req.DiscountAmount.IsNegative():
		return fmt.Errorf("%w: negative discount", ErrInvalidTotals)
	case req.DiscountAmount.GreaterThan(req.Subtotal):
		return fmt.Errorf("%w: discount exceeds subtotal", ErrInvalidTotals)
	case !req.Total.Equal(req.Subtotal.Sub(req.DiscountAmount)):
		return fmt.Errorf("%w: total %s, want %s", ErrInvalidTotals, req.Total, req.Subtotal.Sub(req.DiscountAmount))
	}
	return nil
}

// GetOrder returns a stored order
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// generateOrderID generates a unique order ID using UUID
func generateOrderID() string {
	return uuid.New().String()
}

// OrderCreator is the storefront's port to the order-creation backend
type OrderCreator interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (orderID string, err error)
}

// LocalOrderCreator runs order creation in process
type LocalOrderCreator struct {
	Orders *OrderService
}

func (c LocalOrderCreator) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (string, error) {
	order, err := c.Orders.CreateOrder(ctx, req)
	if err != nil {
		return "", err
	}
	return order.ID, nil
}
