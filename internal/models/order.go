package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidOrderType = errors.New("invalid order type")

// OrderType is how the customer receives the order
type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE-IN"
	OrderTypeTakeOut  OrderType = "TAKE OUT"
	OrderTypeDelivery OrderType = "DELIVERY"

	// DefaultOrderType is selected on a fresh terminal
	DefaultOrderType = OrderTypeTakeOut
)

// OrderTypes lists the accepted order types in display order
func OrderTypes() []OrderType {
	return []OrderType{OrderTypeDineIn, OrderTypeTakeOut, OrderTypeDelivery}
}

// ParseOrderType accepts the display values case-insensitively
func ParseOrderType(s string) (OrderType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range OrderTypes() {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, s)
}

// Valid reports whether t is one of the known order types
func (t OrderType) Valid() bool {
	_, err := ParseOrderType(string(t))
	return err == nil
}

// CartLine is a single item reserved in a terminal's cart
type CartLine struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Quantity      int             `json:"quantity"`
	OriginalStock int             `json:"originalStock"`
	CategoryID    string          `json:"categoryId"`
	ImageURL      string          `json:"imgUrl,omitempty"`
}

// LineTotal is price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderStatus tracks the persisted order lifecycle
type OrderStatus string

const (
	OrderStatusPlaced OrderStatus = "placed"
)

// CreateOrderRequest is what the storefront hands to the order-creation backend
type CreateOrderRequest struct {
	Lines          []CartLine      `json:"lines"`
	Total          decimal.Decimal `json:"total"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CashierName    string          `json:"cashierName"`
	CashierID      string          `json:"cashierId"`
	OrderType      OrderType       `json:"orderType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountCode   string          `json:"discountCode,omitempty"`
}

// Order represents a persisted order
type Order struct {
	ID             string          `json:"id"`
	Lines          []CartLine      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountCode   string          `json:"discountCode,omitempty"`
	Total          decimal.Decimal `json:"total"`
	OrderType      OrderType       `json:"orderType"`
	CashierName    string          `json:"cashierName"`
	CashierID      string          `json:"cashierId"`
	Status         OrderStatus     `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ItemCount is the sum of line quantities
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
