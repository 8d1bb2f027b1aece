package rules

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/relief-tracker/internal/common"
)

func TestLoadFile_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(`
rules:
  - category: Medical
    keywords: [clinic, pharmacy]
    limit: 6000
    description: Medical expenses including consultations and medication.
  - category: Lifestyle
    limit: 2500
    description: Electronics, sports equipment and books.
`), 0o644))

	rs, err := LoadFile(yml)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "Medical", rs[0].Category)
	assert.Equal(t, []string{"clinic", "pharmacy"}, rs[0].Keywords)
	assert.InDelta(t, 2500, rs[1].Limit, 1e-9)

	js := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"rules":[{"category":"Donations","limit":99999,"description":"Approved institutions."}]}`), 0o644))
	rs, err = LoadFile(js)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "Donations", rs[0].Category)
}

func TestDecode_InvalidDocumentsAreConfigErrors(t *testing.T) {
	cases := map[string]string{
		"missing rules":     `other: 1`,
		"empty list":        `rules: []`,
		"negative limit":    "rules:\n  - {category: A, limit: -5, description: d}",
		"empty description": "rules:\n  - {category: A, limit: 5, description: \"\"}",
		"unknown field":     "rules:\n  - {category: A, limit: 5, description: d, cap: 3}",
		"duplicate":         "rules:\n  - {category: A, limit: 5, description: d}\n  - {category: a, limit: 1, description: e}",
		"not yaml":          "rules: [unclosed",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc), "yaml")
			require.Error(t, err)
			assert.True(t, common.IsConfigError(err), "got %v", err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, common.IsConfigError(err))
}

func TestEncode_ReadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DefaultRules()))

	rs, err := Decode(&buf, "yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rs)
}
