package ocr

import (
	"sort"
	"strings"
)

type field string

const (
	fieldMerchant   field = "merchant"
	fieldDate       field = "date"
	fieldTotal      field = "total"
	fieldNames      field = "item_names"
	fieldPrices     field = "item_prices"
	fieldCategories field = "item_categories"
)

// aliases lists accepted key spellings per field in canonical form, highest precedence first.
var aliases = map[field][]string{
	fieldMerchant:   {"merchant name", "merchant", "store name", "store", "vendor"},
	fieldDate:       {"date of purchase", "date", "purchase date", "transaction date"},
	fieldTotal:      {"total amount spent", "total amount", "total", "grand total", "amount"},
	fieldNames:      {"item name", "item names", "items", "line items"},
	fieldPrices:     {"item price", "item prices", "prices", "price"},
	fieldCategories: {"item category", "item categories", "categories", "category"},
}

var fieldOrder = []field{fieldMerchant, fieldDate, fieldTotal, fieldNames, fieldPrices, fieldCategories}

// item-object keys used when "items" is a list of objects
var itemAliases = map[string][]string{
	"name":     {"name", "item name", "item", "description"},
	"price":    {"price", "item price", "amount", "total"},
	"category": {"category", "item category"},
}

// canonKey lowercases a key and folds "_" and "-" into single spaces,
// so "merchant_name", "Merchant name" and "MERCHANT-NAME" compare equal.
func canonKey(k string) string {
	k = strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(k))
	return strings.Join(strings.Fields(k), " ")
}

// canonicalKeys re-keys m by canonKey. On collisions the lexically first original key wins.
func canonicalKeys(m map[string]any) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(m))
	for _, k := range keys {
		ck := canonKey(k)
		if _, taken := out[ck]; !taken {
			out[ck] = m[k]
		}
	}
	return out
}

// resolve maps the payload onto the canonical fields it recognizes.
func resolve(m map[string]any) map[field]any {
	canon := canonicalKeys(m)
	out := make(map[field]any, len(fieldOrder))
	for _, f := range fieldOrder {
		for _, alias := range aliases[f] {
			if v, ok := canon[alias]; ok {
				out[f] = v
				break
			}
		}
	}
	return out
}

func hasRecognizedKey(m map[string]any) bool {
	return len(resolve(m)) > 0
}

func lookupItemField(obj map[string]any, name string) any {
	canon := canonicalKeys(obj)
	for _, alias := range itemAliases[name] {
		if v, ok := canon[alias]; ok {
			return v
		}
	}
	return nil
}
