package category

import "strings"

// DefaultCategory is the bucket for symbols no rule matches.
const DefaultCategory = "Others"

// Rule maps a keyword to a category. Matching is a lowercased substring
// check against the token symbol.
type Rule struct {
	Keyword  string
	Category string
}

// Classifier maps token symbols to category names using an ordered rule
// list with first-match-wins semantics. The zero value classifies
// everything as Others.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a Classifier from ordered rules. Rules with an empty
// keyword or category are dropped; keywords are lowercased once up front.
func NewClassifier(rules []Rule) *Classifier {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		cat := strings.TrimSpace(r.Category)
		if kw == "" || cat == "" {
			continue
		}
		normalized = append(normalized, Rule{Keyword: kw, Category: cat})
	}
	return &Classifier{rules: normalized}
}

// Classify returns the category for a token symbol, or DefaultCategory when
// no keyword matches.
func (c *Classifier) Classify(symbol string) string {
	if c == nil {
		return DefaultCategory
	}
	s := strings.ToLower(symbol)
	for _, r := range c.rules {
		if strings.Contains(s, r.Keyword) {
			return r.Category
		}
	}
	return DefaultCategory
}
