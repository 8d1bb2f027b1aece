package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"plain mapping", `{"merchant": "A"}`, StructuredMapping},
		{"json fence", "text\n```json\n{\"merchant\": \"A\"}\n```\nmore", FencedJSONText},
		{"bare fence", "```\n{\"merchant\": \"A\"}\n```", FencedJSONText},
		{"wrapped fence", `{"raw_response": "` + "```json\\n{\\\"merchant\\\": \\\"A\\\"}\\n```" + `"}`, FencedJSONText},
		{"wrapped object text", `{"raw_response": {"text": "{\"merchant\": \"A\"}"}}`, StructuredMapping},
		{"double encoded", `"{\"merchant\": \"A\"}"`, StructuredMapping},
		{"garbage", "Sorry, I cannot read this receipt.", OpaqueText},
		{"broken fence", "```json\n{merchant: A\n```", OpaqueText},
		{"wrapped garbage", `{"raw_response": "nope"}`, OpaqueText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify(tt.raw)
			assert.Equal(t, tt.want, p.Kind, p.Text)
			if tt.want != OpaqueText {
				assert.Equal(t, "A", p.Fields["merchant"])
			}
		})
	}
}

func TestClassify_PrefersJSONFence(t *testing.T) {
	raw := "```text\nhello\n```\n```json\n{\"merchant\": \"B\"}\n```"
	p := Classify(raw)
	assert.Equal(t, FencedJSONText, p.Kind)
	assert.Equal(t, "B", p.Fields["merchant"])
}

func TestClassifyValue(t *testing.T) {
	p := ClassifyValue(map[string]any{"Merchant name": "A"})
	assert.Equal(t, StructuredMapping, p.Kind)
	assert.Contains(t, p.Text, "Merchant name")

	assert.Equal(t, OpaqueText, ClassifyValue(42.0).Kind)
}
