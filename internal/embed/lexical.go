package embed

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

const LexicalName = "lexical"

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "for": {}, "from": {}, "i": {}, "if": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "such": {}, "that": {}, "the": {},
	"their": {}, "this": {}, "to": {}, "up": {}, "was": {}, "what": {}, "which": {},
	"with": {}, "you": {}, "your": {},
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
// Stopwords, single characters and pure numbers are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || isNumber(f) {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// LexicalState is the fitted vocabulary of a Lexical embedder, suitable for persisting.
type LexicalState struct {
	Terms []string  `json:"terms"`
	IDF   []float32 `json:"idf"`
}

// Lexical is a TF-IDF embedder over the vocabulary of the corpus it was fitted on.
// It runs offline and is fully deterministic; terms outside the vocabulary are ignored.
type Lexical struct {
	index map[string]int
	state LexicalState
}

// NewLexical returns an unfitted embedder. Use Fit or RestoreLexical before Embed.
func NewLexical() *Lexical {
	return &Lexical{}
}

func (l *Lexical) Name() string { return LexicalName }

// Fit builds the vocabulary (sorted, so equal corpora give equal vectors) and smoothed IDF weights.
func (l *Lexical) Fit(corpus []string) (Embedder, error) {
	df := map[string]int{}
	for _, doc := range corpus {
		seen := map[string]struct{}{}
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("fit lexical embedder: corpus has no terms")
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	idf := make([]float32, len(terms))
	for i, t := range terms {
		idf[i] = float32(math.Log((1+n)/(1+float64(df[t]))) + 1)
	}
	return RestoreLexical(LexicalState{Terms: terms, IDF: idf})
}

// RestoreLexical rebuilds a fitted embedder from persisted state.
func RestoreLexical(state LexicalState) (*Lexical, error) {
	if len(state.Terms) == 0 || len(state.Terms) != len(state.IDF) {
		return nil, fmt.Errorf("restore lexical embedder: %d terms, %d weights", len(state.Terms), len(state.IDF))
	}
	index := make(map[string]int, len(state.Terms))
	for i, t := range state.Terms {
		index[t] = i
	}
	return &Lexical{index: index, state: state}, nil
}

// State returns the fitted vocabulary.
func (l *Lexical) State() LexicalState {
	return l.state
}

func (l *Lexical) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if l.index == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(l.state.Terms))
		for _, tok := range Tokenize(text) {
			if j, ok := l.index[tok]; ok {
				v[j] += l.state.IDF[j]
			}
		}
		out[i] = Normalize(v)
	}
	return out, nil
}
