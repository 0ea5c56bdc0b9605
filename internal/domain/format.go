package domain

import (
	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatUSD renders a USD value for display: "$1.23M", "$6.00K", "$950",
// with a leading minus for negative values. Display strings are never parsed
// back; all arithmetic happens on the decimal values.
func FormatUSD(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}

	switch {
	case v.GreaterThanOrEqual(million):
		return sign + "$" + v.Div(million).StringFixed(2) + "M"
	case v.GreaterThanOrEqual(thousand):
		return sign + "$" + v.Div(thousand).StringFixed(2) + "K"
	default:
		return sign + "$" + v.StringFixed(0)
	}
}

// FormatBalance renders a token balance with four decimal places.
func FormatBalance(v decimal.Decimal) string {
	return v.StringFixed(4)
}
