// Package rules holds the tax-relief knowledge base and its embedding index.
package rules

import (
	"math"
	"strings"

	"github.com/joseph-ayodele/relief-tracker/constants"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

// DefaultRules returns the built-in LHDN relief rules, in index order.
func DefaultRules() []entity.Rule {
	return []entity.Rule{
		{
			Category:    string(constants.Lifestyle),
			Keywords:    []string{"electronics", "books", "sports", "gadgets"},
			Limit:       2500,
			Description: "You can claim up to RM2,500 for purchases on lifestyle-related items such as electronics, sports equipment, and books.",
		},
		{
			Category:    string(constants.Medical),
			Keywords:    []string{"clinic", "pharmacy", "medicine", "hospital"},
			Limit:       6000,
			Description: "You can claim up to RM6,000 for medical expenses including consultations, treatments, and medication.",
		},
		{
			Category:    string(constants.Parenting),
			Keywords:    []string{"tuition", "school", "books", "education"},
			Limit:       2000,
			Description: "Parents can claim up to RM2,000 for education expenses related to their children.",
		},
		{
			Category:    string(constants.InsuranceEPF),
			Keywords:    []string{"insurance", "epf", "kwsp"},
			Limit:       7000,
			Description: "You can claim up to RM7,000 for life insurance premiums and EPF contributions.",
		},
		{
			Category:    string(constants.Donations),
			Keywords:    []string{"donation", "ngo", "zakat"},
			Limit:       99999,
			Description: "Donations to approved institutions are deductible subject to the allowable income percentage.",
		},
	}
}

// Validate checks the knowledge base invariants. Any violation is a configuration error.
func Validate(rules []entity.Rule) error {
	if len(rules) == 0 {
		return common.NewConfigError("rule knowledge base is empty")
	}
	seen := make(map[string]int, len(rules))
	for i, r := range rules {
		cat := strings.TrimSpace(r.Category)
		if cat == "" {
			return common.ConfigErrorf("rule %d: category is empty", i)
		}
		key := strings.ToLower(cat)
		if prev, dup := seen[key]; dup {
			return common.ConfigErrorf("rule %d (%s): duplicate category, first defined at %d", i, cat, prev)
		}
		seen[key] = i
		if math.IsNaN(r.Limit) || math.IsInf(r.Limit, 0) || r.Limit < 0 {
			return common.ConfigErrorf("rule %d (%s): limit must be a non-negative number", i, cat)
		}
		if strings.TrimSpace(r.Description) == "" {
			return common.ConfigErrorf("rule %d (%s): description is empty", i, cat)
		}
	}
	return nil
}
