package category

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Keyword: "eth", Category: "ETH"},
		{Keyword: "usd", Category: "Stables"},
		{Keyword: "weeth", Category: "LRT"}, // never reached, "eth" matches first
	})

	tests := []struct {
		symbol string
		want   string
	}{
		{"ETH", "ETH"},
		{"weETH", "ETH"}, // substring of the first rule, not the third
		{"USDC", "Stables"},
		{"usde", "Stables"},
		{"WBTC", "Others"},
		{"", "Others"},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.symbol); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := NewClassifier([]Rule{{Keyword: "USD", Category: "Stables"}})
	if got := c.Classify("susde"); got != "Stables" {
		t.Errorf("Classify(susde) = %q, want Stables", got)
	}
}

func TestNewClassifierDropsEmptyRules(t *testing.T) {
	c := NewClassifier([]Rule{
		{Keyword: "", Category: "X"},
		{Keyword: "btc", Category: ""},
		{Keyword: " btc ", Category: "BTC"},
	})
	if got := c.Classify("WBTC"); got != "BTC" {
		t.Errorf("Classify(WBTC) = %q, want BTC", got)
	}
}

func TestNilClassifier(t *testing.T) {
	var c *Classifier
	if got := c.Classify("ETH"); got != DefaultCategory {
		t.Errorf("nil classifier should return %q, got %q", DefaultCategory, got)
	}
}

type fakeRangeReader struct {
	rows [][]string
	err  error
}

func (f *fakeRangeReader) ReadRange(_ context.Context, _ string) ([][]string, error) {
	return f.rows, f.err
}

func TestLoadRules(t *testing.T) {
	reader := &fakeRangeReader{rows: [][]string{
		{"eth", "ETH"},
		{"usd", "Stables"},
		{"", "ignored"},
		{"orphan", ""},
	}}

	rules, warnings := LoadRules(context.Background(), reader, "token_category")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Keyword != "eth" || rules[1].Category != "Stables" {
		t.Errorf("unexpected rules: %+v", rules)
	}
}

func TestLoadRulesSheetError(t *testing.T) {
	reader := &fakeRangeReader{err: errors.New("boom")}
	rules, warnings := LoadRules(context.Background(), reader, "token_category")
	if rules != nil {
		t.Errorf("expected nil rules on error, got %v", rules)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}
