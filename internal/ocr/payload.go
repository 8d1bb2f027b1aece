// Package ocr turns whatever the vision collaborator returned into canonical receipt data.
package ocr

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind tags how a raw OCR payload was interpreted.
type Kind int

const (
	OpaqueText Kind = iota
	StructuredMapping
	FencedJSONText
)

func (k Kind) String() string {
	switch k {
	case StructuredMapping:
		return "structured_mapping"
	case FencedJSONText:
		return "fenced_json_text"
	default:
		return "opaque_text"
	}
}

// Payload is the classified OCR output. Fields is set for the two mapping kinds;
// Text always keeps the original text for diagnostics.
type Payload struct {
	Kind   Kind
	Fields map[string]any
	Text   string
}

var (
	reFenceJSON = regexp.MustCompile("(?is)```json\\s*(.*?)```")
	reFenceAny  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// wrapperKeys hold free text produced when an upstream JSON decode already failed.
var wrapperKeys = []string{"raw response", "response", "text", "content", "output"}

const maxUnwrap = 3

// Classify interprets raw OCR output. It never fails; anything that cannot be
// read as a mapping is OpaqueText.
func Classify(raw string) Payload {
	return classify(raw, 0)
}

// ClassifyValue is Classify for output the collaborator already decoded.
func ClassifyValue(v any) Payload {
	switch t := v.(type) {
	case map[string]any:
		return classifyMap(t, "", StructuredMapping, 0)
	case string:
		return Classify(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Payload{Kind: OpaqueText}
	}
	return Payload{Kind: OpaqueText, Text: string(b)}
}

func classify(raw string, depth int) Payload {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Payload{Kind: OpaqueText, Text: raw}
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		switch t := decoded.(type) {
		case map[string]any:
			return classifyMap(t, raw, StructuredMapping, depth)
		case string:
			if depth < maxUnwrap {
				return classify(t, depth+1)
			}
		}
		return Payload{Kind: OpaqueText, Text: raw}
	}

	if block, ok := fencedBlock(raw); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(block), &m); err == nil && m != nil {
			return classifyMap(m, raw, FencedJSONText, depth)
		}
	}
	return Payload{Kind: OpaqueText, Text: raw}
}

// classifyMap unwraps {"raw_response": "..."} style wrappers that carry no receipt fields.
func classifyMap(m map[string]any, raw string, kind Kind, depth int) Payload {
	if raw == "" {
		if b, err := json.Marshal(m); err == nil {
			raw = string(b)
		}
	}
	if hasRecognizedKey(m) || depth >= maxUnwrap {
		return Payload{Kind: kind, Fields: m, Text: raw}
	}

	canon := canonicalKeys(m)
	for _, key := range wrapperKeys {
		v, ok := canon[key]
		if !ok {
			continue
		}
		text, ok := wrapperText(v)
		if !ok {
			continue
		}
		inner := classify(text, depth+1)
		if inner.Kind == OpaqueText {
			return Payload{Kind: OpaqueText, Text: text}
		}
		if inner.Kind == StructuredMapping && kind == FencedJSONText {
			inner.Kind = FencedJSONText
		}
		return inner
	}
	return Payload{Kind: kind, Fields: m, Text: raw}
}

func wrapperText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s, true
		}
	}
	return "", false
}

// fencedBlock returns the body of the first ```json block, or else the first ``` block.
func fencedBlock(text string) (string, bool) {
	if m := reFenceJSON.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := reFenceAny.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
