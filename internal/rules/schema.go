package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fileSchema describes a rule file. It is checked before any rule is decoded.
func fileSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"rules"},
		"properties": map[string]any{
			"rules": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"category", "limit", "description"},
					"properties": map[string]any{
						"category":    map[string]any{"type": "string", "minLength": 1},
						"keywords":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"limit":       map[string]any{"type": "number", "minimum": 0},
						"description": map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
		},
	}
}

// validateJSONAgainstSchema validates "data" against "schemaMap".
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rule file does not match schema: %w", err)
	}
	return nil
}
