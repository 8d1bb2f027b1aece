package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

type ruleFile struct {
	Rules []entity.Rule `json:"rules" yaml:"rules"`
}

// LoadFile reads a YAML (.yaml/.yml) or JSON rule file.
func LoadFile(path string) ([]entity.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "open rule file "+path, fmt.Errorf("%w: %v", common.ErrConfiguration, err))
	}
	defer f.Close()

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Decode(f, format)
}

// Decode parses, schema-checks and validates a rule document. Every failure is a configuration error.
func Decode(r io.Reader, format string) ([]entity.Rule, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, common.ConfigErrorf("read rule file: %v", err)
	}

	// Normalize to JSON so one schema serves both formats.
	var doc any
	switch format {
	case "json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, common.ConfigErrorf("decode rule file: %v", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, common.ConfigErrorf("decode rule file: %v", err)
		}
	default:
		return nil, common.ConfigErrorf("unsupported rule file format %q", format)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, common.ConfigErrorf("rule file is not JSON compatible: %v", err)
	}
	if err := validateJSONAgainstSchema(fileSchema(), asJSON); err != nil {
		return nil, common.ConfigErrorf("%v", err)
	}

	var rf ruleFile
	if err := json.Unmarshal(asJSON, &rf); err != nil {
		return nil, common.ConfigErrorf("decode rules: %v", err)
	}
	if err := Validate(rf.Rules); err != nil {
		return nil, err
	}
	return rf.Rules, nil
}

// Encode writes rules as YAML, the format LoadFile reads by default.
func Encode(w io.Writer, rules []entity.Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ruleFile{Rules: rules}); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}
