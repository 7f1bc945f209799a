package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// UnknownCategoryName is shown for items whose category is missing from the mirror
	UnknownCategoryName = "Unknown"
	// UnknownCategoryColor is the color used for unresolved categories
	UnknownCategoryColor = "transparent"
)

// InventoryItem represents a sellable item mirrored from the external catalog
type InventoryItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	ImageURL    string          `json:"imgUrl,omitempty"`
}

// InStock reports whether the catalog holds at least one unit
func (i InventoryItem) InStock() bool {
	return i.Stock > 0
}

// Category groups inventory items for filtering and display
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DisplayColor returns the trimmed color, or the unknown color when empty
func (c Category) DisplayColor() string {
	color := strings.TrimSpace(c.Color)
	if color == "" {
		return UnknownCategoryColor
	}
	return color
}
