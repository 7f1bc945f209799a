package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseOrderType(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderType
		wantErr bool
	}{
		{"DINE-IN", OrderTypeDineIn, false},
		{"take out", OrderTypeTakeOut, false},
		{" delivery ", OrderTypeDelivery, false},
		{"PICKUP", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOrderType) {
					t.Errorf("ParseOrderType(%q) error = %v, want ErrInvalidOrderType", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOrderType(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseOrderType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCartLine_LineTotal(t *testing.T) {
	line := CartLine{Price: decimal.RequireFromString("12.99"), Quantity: 3}
	if !line.LineTotal().Equal(decimal.RequireFromString("38.97")) {
		t.Errorf("LineTotal() = %s, want 38.97", line.LineTotal())
	}
}

func TestCategory_DisplayColor(t *testing.T) {
	if got := (Category{Color: "  #ff0000 "}).DisplayColor(); got != "#ff0000" {
		t.Errorf("DisplayColor() = %q", got)
	}
	if got := (Category{}).DisplayColor(); got != UnknownCategoryColor {
		t.Errorf("DisplayColor() = %q, want %q", got, UnknownCategoryColor)
	}
}
