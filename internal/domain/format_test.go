package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"two ETH at 3000", "6000", "$6.00K"},
		{"millions", "1234567.89", "$1.23M"},
		{"thousands", "1500", "$1.50K"},
		{"small", "950.4", "$950"},
		{"zero", "0", "$0"},
		{"negative thousands", "-1500", "-$1.50K"},
		{"negative small", "-500", "-$500"},
		{"exactly one thousand", "1000", "$1.00K"},
		{"exactly one million", "1000000", "$1.00M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := decimal.RequireFromString(tt.value)
			if got := FormatUSD(v); got != tt.want {
				t.Errorf("FormatUSD(%s) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestFormatBalance(t *testing.T) {
	if got := FormatBalance(decimal.RequireFromString("2")); got != "2.0000" {
		t.Errorf("FormatBalance(2) = %q, want 2.0000", got)
	}
	if got := FormatBalance(decimal.RequireFromString("-0.5")); got != "-0.5000" {
		t.Errorf("FormatBalance(-0.5) = %q, want -0.5000", got)
	}
}
