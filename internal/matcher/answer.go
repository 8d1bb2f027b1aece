package matcher

import (
	"regexp"
	"strings"
	"unicode"
)

// Answer is what could be read from the generator's free text.
type Answer struct {
	Deductible bool
	Category   string
	Claimable  string
}

var (
	reDeductibleMarker = regexp.MustCompile(`(?im)deductible[*_ \t]*:([^\n]*)`)
	reDeductibleLine   = regexp.MustCompile(`(?im)^.*deductible.*$`)
	reCategory         = regexp.MustCompile(`(?i)category:([^\n]*)`)
	reClaimable        = regexp.MustCompile(`(?i)claimable:([^\n]*)`)
)

// negations and hedges both make a deductible signal non-affirmative.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "non": {}, "false": {}, "none": {}, "never": {},
	"cannot": {}, "isn": {}, "aren": {}, "nondeductible": {},
	"whether": {}, "if": {}, "unsure": {}, "unknown": {}, "unclear": {},
	"may": {}, "might": {}, "maybe": {}, "possibly": {}, "uncertain": {},
}

var affirmatives = map[string]struct{}{
	"yes": {}, "y": {}, "true": {}, "deductible": {}, "eligible": {}, "claimable": {},
}

// placeholders a model writes when no category applies
var emptyValues = map[string]struct{}{
	"none": {}, "n/a": {}, "na": {}, "-": {}, "--": {}, "not applicable": {}, "nil": {}, "null": {},
}

// ParseAnswer reads the marker lines of a generator reply. Missing markers keep their
// zero value. A "Deductible:" marker wins over prose; its value must hold an affirmative
// word and no negation. Without a marker, the first line mentioning "deductible" counts
// only when it carries no negation or hedge.
func ParseAnswer(text string) Answer {
	var a Answer
	if m := reDeductibleMarker.FindStringSubmatch(text); m != nil {
		words := wordsOf(m[1])
		a.Deductible = !hasAny(words, negations) && hasAny(words, affirmatives)
	} else if line := reDeductibleLine.FindString(text); line != "" {
		a.Deductible = !hasAny(wordsOf(line), negations)
	}
	if m := reCategory.FindStringSubmatch(text); m != nil {
		a.Category = cleanValue(m[1])
		if _, ok := emptyValues[strings.ToLower(strings.TrimRight(a.Category, "."))]; ok {
			a.Category = ""
		}
	}
	if m := reClaimable.FindStringSubmatch(text); m != nil {
		a.Claimable = cleanValue(m[1])
	}
	return a
}

func wordsOf(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func hasAny(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// cleanValue drops markdown emphasis and surrounding whitespace.
func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`"))
}
