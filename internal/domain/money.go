package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseDiscount turns "10%" or "25.50" into an absolute amount against
// subtotal. Unparseable or negative input yields zero.
func ParseDiscount(input string, subtotal decimal.Decimal) decimal.Decimal {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero
	}
	if strings.HasSuffix(s, "%") {
		pct, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		if err != nil || pct.IsNegative() {
			return decimal.Zero
		}
		return subtotal.Mul(pct).Div(hundred).Round(2)
	}
	return ParseAmount(s)
}

// ParseAmount parses a non-negative currency amount; anything else is zero.
func ParseAmount(input string) decimal.Decimal {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

// MaxZero clamps negative amounts to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
