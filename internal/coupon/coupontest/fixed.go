// Package coupontest provides a fixed discount table for tests.
package coupontest

import (
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// FixedRules are SAVE10 (10%), SAVE20 (20%) and FLAT50 (50 off)
func FixedRules() []coupon.Rule {
	return []coupon.Rule{
		{Code: "SAVE10", Kind: models.DiscountPercent, Value: decimal.NewFromInt(10)},
		{Code: "SAVE20", Kind: models.DiscountPercent, Value: decimal.NewFromInt(20)},
		{Code: "FLAT50", Kind: models.DiscountFlat, Value: decimal.NewFromInt(50)},
	}
}

// FixedTable is a resolver serving FixedRules
func FixedTable() *coupon.Catalog {
	c, err := coupon.NewCatalogFromRules(FixedRules()...)
	if err != nil {
		panic(err)
	}
	return c
}
