// Package events publishes order lifecycle messages.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const (
	OrderPlacedQueue      = "order_placed_queue"
	OrderPlacedRoutingKey = "order.placed"
)

// OrderPlaced is published once an order is persisted
type OrderPlaced struct {
	OrderID        string            `json:"order_id"`
	CashierID      string            `json:"cashier_id"`
	CashierName    string            `json:"cashier_name"`
	OrderType      models.OrderType  `json:"order_type"`
	Lines          []models.CartLine `json:"lines"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	DiscountCode   string            `json:"discount_code,omitempty"`
	Total          decimal.Decimal   `json:"total"`
	CreatedAt      string            `json:"created_at"`
}

// NewOrderPlaced builds the event for an order
func NewOrderPlaced(order *models.Order) OrderPlaced {
	return OrderPlaced{
		OrderID:        order.ID,
		CashierID:      order.CashierID,
		CashierName:    order.CashierName,
		OrderType:      order.OrderType,
		Lines:          order.Lines,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		DiscountCode:   order.DiscountCode,
		Total:          order.Total,
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
	}
}

// Publisher delivers order events
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

// MemoryPublisher keeps events in memory
type MemoryPublisher struct {
	mu     sync.Mutex
	events []OrderPlaced
	Err    error
}

func (p *MemoryPublisher) PublishOrderPlaced(_ context.Context, event OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of the published events
func (p *MemoryPublisher) Events() []OrderPlaced {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OrderPlaced(nil), p.events...)
}
