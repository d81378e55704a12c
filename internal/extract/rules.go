// Package extract pulls individual receipt fields out of raw OCR text.
//
// Every extractor is a pure function over the full text that returns nil when the
// field is not found. Each one walks an explicit, ordered rule list and stops at the
// first rule that yields a usable value, so priority is data rather than control flow.
package extract

import (
	"regexp"
	"strconv"
)

// rule pairs a pattern with a parser for its submatches. parse reports false to fall through.
type rule[T any] struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string) (T, bool)
}

func firstMatch[T any](text string, rules []rule[T]) *T {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := r.parse(m); ok {
			return &v
		}
	}
	return nil
}

// money matches "<label> : $12.34" with the colon, spacing and dollar sign optional.
// Labels match anywhere, even glued to a preceding word.
func money(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + `[:\s]*\$?(\d+\.\d{2})`)
}

func parseMoney(m []string) (float64, bool) {
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
