package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"drops stopwords and numbers", "The receipt is from TechStore with RM 1500", []string{"receipt", "techstore", "rm"}},
		{"splits punctuation", "lifestyle-related items, electronics", []string{"lifestyle", "related", "items", "electronics"}},
		{"keeps mixed tokens", "RM2,500", []string{"rm2"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexical_EmbedBeforeFit(t *testing.T) {
	_, err := NewLexical().Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLexical_FitIsDeterministic(t *testing.T) {
	corpus := []string{"electronics and books", "medical consultations", "books for children"}

	a, err := NewLexical().Fit(corpus)
	require.NoError(t, err)
	b, err := NewLexical().Fit(corpus)
	require.NoError(t, err)

	va, err := a.Embed(context.Background(), []string{"books about electronics"})
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), []string{"books about electronics"})
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestLexical_SimilarTextIsCloser(t *testing.T) {
	e, err := NewLexical().Fit([]string{"electronics sports equipment books", "medical consultations medication"})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{
		"electronics sports equipment books",
		"medical consultations medication",
		"new electronics",
	})
	require.NoError(t, err)

	assert.Less(t, CosineDistance(vecs[2], vecs[0]), CosineDistance(vecs[2], vecs[1]))
}

func TestLexical_UnknownTermsGiveZeroVector(t *testing.T) {
	e, err := NewLexical().Fit([]string{"electronics"})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"", "groceries"})
	require.NoError(t, err)
	for _, v := range vecs {
		for _, x := range v {
			assert.Zero(t, x)
		}
	}
	assert.Equal(t, 1.0, CosineDistance(vecs[0], vecs[1]))
}

func TestRestoreLexical(t *testing.T) {
	fitted, err := NewLexical().Fit([]string{"medical consultations", "books"})
	require.NoError(t, err)

	restored, err := RestoreLexical(fitted.(*Lexical).State())
	require.NoError(t, err)

	want, _ := fitted.Embed(context.Background(), []string{"medical books"})
	got, _ := restored.Embed(context.Background(), []string{"medical books"})
	assert.Equal(t, want, got)

	_, err = RestoreLexical(LexicalState{Terms: []string{"a"}})
	assert.Error(t, err)
}

func TestFit_EmptyCorpus(t *testing.T) {
	_, err := NewLexical().Fit([]string{"", "the and of"})
	assert.Error(t, err)
}
