package ocr

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reCurrency = regexp.MustCompile(`(?i)MYR|USD|SGD|RM|S\$|[$€£]`)

// CleanPrice converts a price value into a finite, non-negative number.
// Absent values give 0. Values that are present but unusable also give 0 and
// report defaulted=true so the caller can record a ParseDefaulted.
func CleanPrice(v any) (price float64, defaulted bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return finite(float64(t))
	case int64:
		return finite(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, true
		}
		return finite(f)
	case string:
		return cleanPriceString(t)
	default:
		return 0, true
	}
}

func cleanPriceString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = reCurrency.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, true
	}
	return f, false
}
