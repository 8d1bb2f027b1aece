package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Answer
	}{
		{
			name: "well formed",
			text: "Deductible: yes\nCategory: Lifestyle\nClaimable: RM1500 (within the RM2,500 cap)",
			want: Answer{Deductible: true, Category: "Lifestyle", Claimable: "RM1500 (within the RM2,500 cap)"},
		},
		{
			name: "case and markdown",
			text: "**DEDUCTIBLE:** Yes\n**category:** Medical\n**Claimable:** RM 35.00",
			want: Answer{Deductible: true, Category: "Medical", Claimable: "RM 35.00"},
		},
		{
			name: "negated",
			text: "Deductible: No\nCategory: none\nClaimable: RM0",
			want: Answer{Deductible: false, Claimable: "RM0"},
		},
		{
			name: "prose negation",
			text: "This purchase is not deductible under LHDN rules.",
			want: Answer{},
		},
		{
			name: "non-deductible",
			text: "Groceries are non-deductible.\nCategory: -",
			want: Answer{},
		},
		{
			name: "preamble mentions deductible before the marker",
			text: "Here is my assessment of whether this item is deductible.\nDeductible: No\nCategory: none\nClaimable: RM0",
			want: Answer{Claimable: "RM0"},
		},
		{
			name: "heading line before the marker",
			text: "Deductible status for this purchase:\nDeductible: no",
			want: Answer{},
		},
		{
			name: "marker without affirmative value",
			text: "Deductible: unsure\nCategory: Lifestyle",
			want: Answer{Category: "Lifestyle"},
		},
		{
			name: "marker with eligible",
			text: "Deductible: Eligible under lifestyle relief\nCategory: Lifestyle",
			want: Answer{Deductible: true, Category: "Lifestyle"},
		},
		{
			name: "hedged prose",
			text: "It may be deductible depending on the receipt.",
			want: Answer{},
		},
		{
			name: "placeholder categories are empty",
			text: "Deductible: no\nCategory: N/A",
			want: Answer{},
		},
		{
			name: "not applicable category",
			text: "Deductible: no\nCategory: **Not applicable**",
			want: Answer{},
		},
		{
			name: "placeholder with trailing period",
			text: "Deductible: no\nCategory: None.",
			want: Answer{},
		},
		{
			name: "no markers",
			text: "I am not sure.",
			want: Answer{},
		},
		{
			name: "empty",
			text: "",
			want: Answer{},
		},
		{
			name: "value stops at line break",
			text: "It is deductible.\nCategory: Parenting\nand more text\nClaimable:\n",
			want: Answer{Deductible: true, Category: "Parenting"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnswer(tt.text))
		})
	}
}
