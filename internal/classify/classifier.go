// Package classify maps vendor names onto spending categories.
//
// Matching is a plain substring test against an ordered table, so short patterns
// can match inside unrelated words ("gas" in "Gastonia Hardware" yields Gas/Fuel).
// That behavior is kept as-is; callers depend on the existing matches.
package classify

import (
	"strings"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules Table
}

// New copies table; a nil or empty table uses DefaultTable.
func New(table Table) *Classifier {
	if len(table) == 0 {
		table = DefaultTable()
	}
	rules := make(Table, len(table))
	for i, r := range table {
		rules[i] = Rule{Pattern: strings.ToLower(r.Pattern), Category: r.Category}
	}
	return &Classifier{rules: rules}
}

// Classify returns false only for an empty vendor. Unmatched vendors get Other.
func (c *Classifier) Classify(vendor string) (constants.Category, bool) {
	if vendor == "" {
		return "", false
	}
	v := strings.ToLower(vendor)
	for _, r := range c.rules {
		if strings.Contains(v, r.Pattern) {
			return r.Category, true
		}
	}
	return constants.Other, true
}

// Table returns a copy of the rules in match order.
func (c *Classifier) Table() Table {
	out := make(Table, len(c.rules))
	copy(out, c.rules)
	return out
}
