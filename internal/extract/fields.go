package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var amountRules = []rule[float64]{
	// anchored so "Subtotal" never reads as the total
	{name: "total", re: money(`\btotal`), parse: parseMoney},
	{name: "amount", re: money("amount"), parse: parseMoney},
	{name: "balance", re: money("balance"), parse: parseMoney},
	{name: "dollar", re: regexp.MustCompile(`\$(\d+\.\d{2})`), parse: parseMoney},
}

var taxRules = []rule[float64]{
	{name: "tax", re: money("tax"), parse: parseMoney},
	{name: "sales tax", re: money(`sales\s+tax`), parse: parseMoney},
}

type paymentNeedle struct {
	needles []string
	name    string
}

// Checked in order; "credit" is last so a card brand always wins.
var paymentMethods = []paymentNeedle{
	{needles: []string{"visa"}, name: "Visa"},
	{needles: []string{"mastercard", "master card"}, name: "Mastercard"},
	{needles: []string{"amex", "american express"}, name: "American Express"},
	{needles: []string{"discover"}, name: "Discover"},
	{needles: []string{"cash"}, name: "Cash"},
	{needles: []string{"debit"}, name: "Debit Card"},
	{needles: []string{"credit"}, name: "Credit Card"},
}

// Vendor returns the first non-blank line longer than two characters, trimmed.
// The length test counts the untrimmed line.
func Vendor(text string) *string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if utf8.RuneCountInString(line) > 2 {
			v := strings.TrimSpace(line)
			return &v
		}
	}
	return nil
}

// Amount prefers labelled totals over the first bare dollar figure.
func Amount(text string) *float64 {
	return firstMatch(text, amountRules)
}

func Tax(text string) *float64 {
	return firstMatch(text, taxRules)
}

func PaymentMethod(text string) *string {
	lower := strings.ToLower(text)
	for _, pm := range paymentMethods {
		for _, n := range pm.needles {
			if strings.Contains(lower, n) {
				name := pm.name
				return &name
			}
		}
	}
	return nil
}
