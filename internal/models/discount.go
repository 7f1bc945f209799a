package models

import "github.com/shopspring/decimal"

// DiscountKind selects how a discount rule computes its amount
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFlat    DiscountKind = "flat"
)

// Discount is the result of resolving a code against a cart
type Discount struct {
	Code       string          `json:"code"`
	Kind       DiscountKind    `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID string          `json:"categoryId,omitempty"`
}
