package constants

import (
	"strings"
)

type Category string

const (
	Groceries            Category = "Groceries"
	Restaurants          Category = "Restaurants"
	GasFuel              Category = "Gas/Fuel"
	Transportation       Category = "Transportation"
	HomeImprovement      Category = "Home Improvement"
	Utilities            Category = "Utilities"
	Healthcare           Category = "Healthcare"
	PetCare              Category = "Pet Care"
	Entertainment        Category = "Entertainment"
	Shopping             Category = "Shopping"
	OfficeSupplies       Category = "Office Supplies"
	ProfessionalServices Category = "Professional Services"
	Insurance            Category = "Insurance"
	Taxes                Category = "Taxes"
	Gifts                Category = "Gifts"
	Travel               Category = "Travel"
	Education            Category = "Education"
	Subscriptions        Category = "Subscriptions"
	Other                Category = "Other"
)

// Taxes, Gifts and Subscriptions have no classifier patterns; users pick them during review.
var allCategories = []Category{
	Groceries,
	Restaurants,
	GasFuel,
	Transportation,
	HomeImprovement,
	Utilities,
	Healthcare,
	PetCare,
	Entertainment,
	Shopping,
	OfficeSupplies,
	ProfessionalServices,
	Insurance,
	Taxes,
	Gifts,
	Travel,
	Education,
	Subscriptions,
	Other,
}

// AllCategories returns a copy of the category enumeration in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// IsValid reports whether c is an exact member of the enumeration.
func IsValid(c Category) bool {
	for _, cat := range allCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Canonicalize maps free-form user input from the review form onto the enumeration.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Other, false
	}

	synonyms := map[string]Category{
		"grocery":      Groceries,
		"food":         Groceries,
		"dining":       Restaurants,
		"restaurant":   Restaurants,
		"gas":          GasFuel,
		"fuel":         GasFuel,
		"gas & fuel":   GasFuel,
		"home":         HomeImprovement,
		"medical":      Healthcare,
		"pets":         PetCare,
		"tax":          Taxes,
		"gift":         Gifts,
		"subscription": Subscriptions,
		"saas":         Subscriptions,
		"office":       OfficeSupplies,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
