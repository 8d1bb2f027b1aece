package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/joseph-ayodele/relief-tracker/constants"
)

// AllowedExt checks if a file extension is an accepted receipt image type.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Filter decides which inbox paths are receipts. Patterns are doublestar globs
// matched against the slash separated path relative to the inbox root.
type Filter struct {
	patterns []string
}

func NewFilter(patterns []string) (*Filter, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid inbox pattern %q", p)
		}
	}
	return &Filter{patterns: patterns}, nil
}

// Match reports whether rel (relative to an inbox root) should be processed.
// Hidden files and unsupported extensions never match. With no patterns every
// supported image matches.
func (f *Filter) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if IsHidden(rel) || !AllowedExt(filepath.Ext(rel)) {
		return false
	}
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
