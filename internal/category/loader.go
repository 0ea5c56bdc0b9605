package category

import (
	"context"
	"fmt"
	"log/slog"
)

// RangeReader reads a worksheet range as string rows.
type RangeReader interface {
	ReadRange(ctx context.Context, a1Range string) ([][]string, error)
}

// RuleLoader reads classification rules from a fixed worksheet.
type RuleLoader struct {
	reader    RangeReader
	worksheet string
}

// NewRuleLoader creates a loader bound to the given worksheet.
func NewRuleLoader(reader RangeReader, worksheet string) *RuleLoader {
	return &RuleLoader{reader: reader, worksheet: worksheet}
}

// LoadRules reads the rules from the loader's worksheet.
func (l *RuleLoader) LoadRules(ctx context.Context) ([]Rule, []string) {
	return LoadRules(ctx, l.reader, l.worksheet)
}

// LoadRules reads the keyword->category rules from the configured worksheet
// (column A keyword, column B category). A read failure degrades to an empty
// rule set, so every symbol classifies as Others; the warning is returned for
// the rendering surface.
func LoadRules(ctx context.Context, reader RangeReader, worksheet string) ([]Rule, []string) {
	rows, err := reader.ReadRange(ctx, worksheet+"!A:B")
	if err != nil {
		w := fmt.Sprintf("unable to read token category sheet %q: %v", worksheet, err)
		slog.Warn(w)
		return nil, []string{w}
	}

	var rules []Rule
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			continue
		}
		rules = append(rules, Rule{Keyword: row[0], Category: row[1]})
	}
	return rules, nil
}
