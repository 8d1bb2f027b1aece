// Package matcher decides tax relief for one expense item using retrieved rules and a generator.
package matcher

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

// BuildQuery renders the retrieval query for an item.
func BuildQuery(item entity.ExpenseItem) string {
	return fmt.Sprintf(
		"The receipt is from %s, category %s, with RM %.2f spent on %s. What deductions can I make based on Malaysian LHDN tax rules?",
		item.Merchant, item.Category, item.Price, item.Date,
	)
}

// BuildPrompt grounds the generator in the retrieved rule descriptions and fixes the answer format.
func BuildPrompt(item entity.ExpenseItem, hits []rules.Hit) string {
	descriptions := make([]string, len(hits))
	for i, h := range hits {
		descriptions[i] = h.Rule.Description
	}

	var b strings.Builder
	b.WriteString("You are a Malaysian tax assistant. Based on the LHDN rules below:\n\n")
	b.WriteString(strings.Join(descriptions, "\n\n"))
	b.WriteString("\n\nAnalyze the following receipt item:\n")
	fmt.Fprintf(&b, "Item: %s\nMerchant: %s\nCategory: %s\nAmount: RM %.2f\nDate: %s\n\n",
		item.Name, item.Merchant, item.Category, item.Price, item.Date)
	b.WriteString("Reply with exactly these three lines and nothing else:\n")
	b.WriteString("Deductible: yes or no\n")
	b.WriteString("Category: the relief category from the rules above, or none\n")
	b.WriteString("Claimable: the amount claimable in RM with a short reason\n")
	return b.String()
}
