package classify

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// Rule maps a lowercase substring to a category.
type Rule struct {
	Pattern  string
	Category constants.Category
}

// Table is an ordered rule list; earlier rules win.
type Table []Rule

type group struct {
	Category constants.Category `yaml:"category"`
	Patterns []string           `yaml:"patterns"`
}

var defaultGroups = []group{
	{constants.Groceries, []string{"costco", "walmart", "target", "whole foods", "trader joe", "safeway", "kroger", "publix", "albertsons"}},
	{constants.Restaurants, []string{"mcdonald", "starbucks", "chipotle", "panera", "subway", "dunkin", "chick-fil-a", "taco bell", "pizza", "restaurant", "cafe", "coffee"}},
	{constants.GasFuel, []string{"shell", "chevron", "exxon", "mobil", "bp", "arco", "76", "valero", "gas", "fuel"}},
	{constants.Transportation, []string{"uber", "lyft", "parking", "toll", "transit"}},
	{constants.HomeImprovement, []string{"home depot", "lowes", "ace hardware", "menards", "hardware"}},
	{constants.Utilities, []string{"electric", "water", "gas company", "internet", "comcast", "at&t", "verizon"}},
	{constants.Healthcare, []string{"pharmacy", "cvs", "walgreens", "rite aid", "hospital", "medical", "doctor", "dental"}},
	{constants.PetCare, []string{"pet", "petsmart", "petco", "veterinary", "vet"}},
	{constants.Entertainment, []string{"netflix", "spotify", "movie", "theater", "cinema", "game"}},
	{constants.Shopping, []string{"amazon", "amzn", "ebay", "etsy", "best buy", "mall"}},
	{constants.OfficeSupplies, []string{"staples", "office depot", "fedex", "ups", "usps"}},
	{constants.ProfessionalServices, []string{"legal", "attorney", "accountant", "consulting"}},
	{constants.Insurance, []string{"insurance", "geico", "state farm", "allstate"}},
	{constants.Travel, []string{"airline", "hotel", "marriott", "hilton", "airbnb", "travel"}},
	{constants.Education, []string{"school", "university", "college", "tuition", "books"}},
}

// DefaultTable returns a fresh copy of the built-in vendor table.
func DefaultTable() Table {
	return flatten(defaultGroups)
}

func flatten(groups []group) Table {
	var t Table
	for _, g := range groups {
		for _, p := range g.Patterns {
			t = append(t, Rule{Pattern: strings.ToLower(p), Category: g.Category})
		}
	}
	return t
}

// LoadTable reads a YAML list of {category, patterns} groups, preserving file order.
// Categories must belong to the enumeration.
func LoadTable(r io.Reader) (Table, error) {
	var groups []group
	if err := yaml.NewDecoder(r).Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode category table: %w", err)
	}
	for i, g := range groups {
		if !constants.IsValid(g.Category) {
			return nil, fmt.Errorf("category table entry %d: unknown category %q", i, g.Category)
		}
		for _, p := range g.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("category table entry %d: empty pattern", i)
			}
		}
	}
	return flatten(groups), nil
}

// MarshalYAML groups consecutive rules of the same category.
func (t Table) MarshalYAML() (any, error) {
	var groups []group
	for _, r := range t {
		if n := len(groups); n > 0 && groups[n-1].Category == r.Category {
			groups[n-1].Patterns = append(groups[n-1].Patterns, r.Pattern)
			continue
		}
		groups = append(groups, group{Category: r.Category, Patterns: []string{r.Pattern}})
	}
	return groups, nil
}
