// Package embed turns text into fixed-length vectors for nearest-neighbour search.
package embed

import (
	"context"
	"errors"
	"math"
)

// ErrNotFitted is returned by corpus-derived embedders used before Fit.
var ErrNotFitted = errors.New("embedder not fitted")

// Embedder maps texts to vectors of one fixed dimension.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Fitter is implemented by embedders whose vector space is derived from the
// indexed corpus. Fit returns a new embedder and leaves the receiver untouched.
type Fitter interface {
	Fit(corpus []string) (Embedder, error)
}

// Normalize scales v to unit length in place and returns it. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
