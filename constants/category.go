package constants

import (
	"strings"
)

// Category is the name of a tax-relief rule in the knowledge base.
type Category string

const (
	Lifestyle     Category = "Lifestyle"
	Medical       Category = "Medical"
	Parenting     Category = "Parenting"
	InsuranceEPF  Category = "Insurance & EPF"
	Donations     Category = "Donations"
	Uncategorized Category = ""
)

var allCategories = []Category{
	Lifestyle,
	Medical,
	Parenting,
	InsuranceEPF,
	Donations,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps spelling variants of a relief label onto a built-in category.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Uncategorized, false
	}

	// spelling variants only; rule keywords are never used here
	synonyms := map[string]Category{
		"lifestyle relief":  Lifestyle,
		"medical expenses":  Medical,
		"medical relief":    Medical,
		"parent":            Parenting,
		"parenting relief":  Parenting,
		"insurance and epf": InsuranceEPF,
		"insurance/epf":     InsuranceEPF,
		"insurance & kwsp":  InsuranceEPF,
		"donation":          Donations,
		"gifts":             Donations,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Uncategorized, false
}
