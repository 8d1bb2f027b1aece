package ocr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

// ErrExtractionFailed matches every *ExtractionFailedError.
var ErrExtractionFailed = errors.New("extraction failed")

// ExtractionFailedError means the OCR output could not be read as a receipt at all.
type ExtractionFailedError struct {
	Reason string
	Text   string // original collaborator output
}

func (e *ExtractionFailedError) Error() string {
	return "extraction failed: " + e.Reason
}

func (e *ExtractionFailedError) Unwrap() error { return ErrExtractionFailed }

// ParseDefaulted records a field that was present but unusable and got its default.
type ParseDefaulted struct {
	Field string `json:"field"`
	Line  int    `json:"line"` // 0 for receipt-level fields, else 1-based item line
	Raw   string `json:"raw"`
}

// Receipt is the canonical form of one OCR payload.
type Receipt struct {
	Kind      Kind
	Info      entity.ReceiptInfo
	Items     []entity.ExpenseItem
	Defaulted []ParseDefaulted
}

// NormalizeText classifies and normalizes raw collaborator output.
func NormalizeText(raw string) (*Receipt, error) {
	return Normalize(Classify(raw))
}

// Normalize builds the canonical receipt. Only a payload with no usable mapping is an
// error; every other irregularity is defaulted locally.
func Normalize(p Payload) (*Receipt, error) {
	if p.Kind == OpaqueText || p.Fields == nil {
		return nil, &ExtractionFailedError{Reason: "output is not a JSON mapping", Text: p.Text}
	}
	fields := resolve(p.Fields)
	if len(fields) == 0 {
		return nil, &ExtractionFailedError{Reason: "mapping has no receipt fields", Text: p.Text}
	}

	rec := &Receipt{Kind: p.Kind}
	rec.Info.Merchant = scalarString(fields[fieldMerchant])
	rec.Info.Date = scalarString(fields[fieldDate])
	total, defaulted := CleanPrice(scalarValue(fields[fieldTotal]))
	rec.Info.TotalAmount = total
	if defaulted {
		rec.Defaulted = append(rec.Defaulted, ParseDefaulted{Field: string(fieldTotal), Raw: rawString(fields[fieldTotal])})
	}

	names := asList(fields[fieldNames])
	if objectItems(names) {
		rec.addObjectItems(names)
		return rec, nil
	}

	prices := asList(fields[fieldPrices])
	cats := asList(fields[fieldCategories])
	n := max(len(names), len(prices), len(cats))
	for i := 0; i < n; i++ {
		rec.addRow(i+1, at(names, i), at(prices, i), at(cats, i))
	}
	return rec, nil
}

func (r *Receipt) addObjectItems(items []any) {
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			r.addRow(i+1, it, nil, nil)
			continue
		}
		r.addRow(i+1, lookupItemField(obj, "name"), lookupItemField(obj, "price"), lookupItemField(obj, "category"))
	}
}

func (r *Receipt) addRow(line int, nameV, priceV, catV any) {
	name := scalarString(nameV)
	price, defaulted := CleanPrice(priceV)
	// padding rows and blank OCR rows carry nothing worth storing
	if name == "" && price == 0 && !defaulted {
		return
	}
	if defaulted {
		r.Defaulted = append(r.Defaulted, ParseDefaulted{Field: "price", Line: line, Raw: rawString(priceV)})
	}
	r.Items = append(r.Items, entity.ExpenseItem{
		Name:     name,
		Price:    price,
		Category: scalarString(catV),
		Merchant: r.Info.Merchant,
		Date:     r.Info.Date,
	})
}

// asList coerces a scalar into a one-element list.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func objectItems(list []any) bool {
	for _, v := range list {
		if _, ok := v.(map[string]any); ok {
			return true
		}
	}
	return false
}

func at(list []any, i int) any {
	if i < len(list) {
		return list[i]
	}
	return nil
}

func scalarValue(v any) any {
	if l, ok := v.([]any); ok {
		if len(l) == 0 {
			return nil
		}
		return l[0]
	}
	return v
}

func scalarString(v any) string {
	switch t := scalarValue(v).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func rawString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
