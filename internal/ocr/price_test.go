package ocr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		in        any
		want      float64
		defaulted bool
	}{
		{"RM1,234.50", 1234.50, false},
		{"$50", 50, false},
		{"", 0, false},
		{nil, 0, false},
		{"free", 0, true},
		{"rm 12.90", 12.90, false},
		{"MYR 1,000", 1000, false},
		{"S$8.20", 8.20, false},
		{"€3", 3, false},
		{"USD 19.99", 19.99, false},
		{"-5", 0, true},
		{"NaN", 0, true},
		{"RM", 0, true},
		{42.5, 42.5, false},
		{math.Inf(1), 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, defaulted := CleanPrice(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.in)
		assert.Equal(t, tt.defaulted, defaulted, "%v", tt.in)
	}
}
