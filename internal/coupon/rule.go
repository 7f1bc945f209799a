package coupon

import (
	"fmt"
	"strings"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rule is one discount definition
type Rule struct {
	Code        string
	Kind        models.DiscountKind
	Value       decimal.Decimal
	CategoryID  string          // empty means any cart
	MinSubtotal decimal.Decimal // zero means no minimum
}

// NormalizeCode trims and upper-cases a code for lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r Rule) validate() error {
	if r.Code == "" {
		return fmt.Errorf("empty code")
	}
	if r.Value.IsNegative() {
		return fmt.Errorf("code %s: negative value %s", r.Code, r.Value)
	}
	switch r.Kind {
	case models.DiscountPercent:
		if r.Value.GreaterThan(hundred) {
			return fmt.Errorf("code %s: percent %s over 100", r.Code, r.Value)
		}
	case models.DiscountFlat:
	default:
		return fmt.Errorf("code %s: unknown kind %q", r.Code, r.Kind)
	}
	if r.MinSubtotal.IsNegative() {
		return fmt.Errorf("code %s: negative minimum subtotal", r.Code)
	}
	return nil
}

// Eligible reports whether the rule applies to a cart
func (r Rule) Eligible(subtotal decimal.Decimal, categoryIDs []string) bool {
	if subtotal.LessThan(r.MinSubtotal) {
		return false
	}
	if r.CategoryID == "" {
		return true
	}
	for _, id := range categoryIDs {
		if id == r.CategoryID {
			return true
		}
	}
	return false
}

// Amount computes the discount for a subtotal, never more than the subtotal
func (r Rule) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch r.Kind {
	case models.DiscountPercent:
		amount = subtotal.Mul(r.Value).Div(hundred).Round(2)
	default:
		amount = r.Value
	}
	return decimal.Min(amount, subtotal)
}
