package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/embed"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

// Hit is one retrieved rule with its distance to the query.
type Hit struct {
	Rule     entity.Rule
	Distance float64
	Position int
}

// Index is an immutable embedding index over rule descriptions; vector i belongs to rule i.
type Index struct {
	rules    []entity.Rule
	vectors  [][]float32
	embedder embed.Embedder
	builtAt  time.Time
}

// Build validates the rules and embeds every description. An embedder that is also an
// embed.Fitter is fitted on the descriptions first.
func Build(ctx context.Context, rules []entity.Rule, embedder embed.Embedder) (*Index, error) {
	if embedder == nil {
		return nil, common.NewConfigError("rule index needs an embedder")
	}
	if err := Validate(rules); err != nil {
		return nil, err
	}

	descriptions := make([]string, len(rules))
	for i, r := range rules {
		descriptions[i] = r.Description
	}

	if f, ok := embedder.(embed.Fitter); ok {
		fitted, err := f.Fit(descriptions)
		if err != nil {
			return nil, fmt.Errorf("fit embedder: %w", err)
		}
		embedder = fitted
	}

	vectors, err := embedder.Embed(ctx, descriptions)
	if err != nil {
		return nil, fmt.Errorf("embed rule descriptions: %w", err)
	}
	if err := checkVectors(vectors, len(rules)); err != nil {
		return nil, err
	}

	return &Index{
		rules:    cloneRules(rules),
		vectors:  vectors,
		embedder: embedder,
		builtAt:  time.Now().UTC(),
	}, nil
}

func checkVectors(vectors [][]float32, n int) error {
	if len(vectors) != n {
		return common.ConfigErrorf("embedder returned %d vectors for %d rules", len(vectors), n)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return common.NewConfigError("embedder returned empty vectors")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return common.ConfigErrorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return nil
}

func cloneRules(rules []entity.Rule) []entity.Rule {
	out := make([]entity.Rule, len(rules))
	for i, r := range rules {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// Len returns the number of indexed rules.
func (ix *Index) Len() int { return len(ix.rules) }

// Rules returns a copy of the indexed rules in index order.
func (ix *Index) Rules() []entity.Rule { return cloneRules(ix.rules) }

// EmbedderName names the embedding function the vectors came from.
func (ix *Index) EmbedderName() string { return ix.embedder.Name() }

func (ix *Index) BuiltAt() time.Time { return ix.builtAt }

// Retrieve returns up to k rules ordered by ascending cosine distance to the query.
// Equal distances keep rule order, so an empty query yields a deterministic result.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", common.ErrInvalidInput, k)
	}
	qv, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(qv))
	}

	hits := make([]Hit, len(ix.rules))
	for i, r := range ix.rules {
		hits[i] = Hit{Rule: r, Distance: embed.CosineDistance(qv[0], ix.vectors[i]), Position: i}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

const snapshotVersion = 1

type snapshot struct {
	Version  int                 `json:"version"`
	Embedder string              `json:"embedder"`
	BuiltAt  time.Time           `json:"built_at"`
	Rules    []entity.Rule       `json:"rules"`
	Vectors  [][]float32         `json:"vectors"`
	Lexical  *embed.LexicalState `json:"lexical,omitempty"`
}

// Snapshot writes the index as JSON. A lexical embedder's fitted vocabulary is included
// so the snapshot can be reloaded without network access.
func (ix *Index) Snapshot(w io.Writer) error {
	snap := snapshot{
		Version:  snapshotVersion,
		Embedder: ix.embedder.Name(),
		BuiltAt:  ix.builtAt,
		Rules:    ix.rules,
		Vectors:  ix.vectors,
	}
	if lx, ok := ix.embedder.(*embed.Lexical); ok {
		st := lx.State()
		snap.Lexical = &st
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores an index written by Snapshot. Lexical snapshots carry their own
// embedder; other snapshots need an embedder with the same name as the one that built them.
func LoadSnapshot(r io.Reader, embedder embed.Embedder) (*Index, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, common.ConfigErrorf("decode snapshot: %v", err)
	}
	if snap.Version != snapshotVersion {
		return nil, common.ConfigErrorf("unsupported snapshot version %d", snap.Version)
	}
	if err := Validate(snap.Rules); err != nil {
		return nil, err
	}
	if err := checkVectors(snap.Vectors, len(snap.Rules)); err != nil {
		return nil, err
	}

	var e embed.Embedder
	switch {
	case snap.Lexical != nil:
		lx, err := embed.RestoreLexical(*snap.Lexical)
		if err != nil {
			return nil, common.ConfigErrorf("restore lexical embedder: %v", err)
		}
		e = lx
	case embedder == nil:
		return nil, common.ConfigErrorf("snapshot built with %q needs an embedder", snap.Embedder)
	case embedder.Name() != snap.Embedder:
		return nil, common.ConfigErrorf("snapshot built with %q, got embedder %q", snap.Embedder, embedder.Name())
	default:
		e = embedder
	}

	return &Index{
		rules:    snap.Rules,
		vectors:  snap.Vectors,
		embedder: e,
		builtAt:  snap.BuiltAt,
	}, nil
}

// ErrNoIndex is returned by a Retriever that has not been given an index yet.
var ErrNoIndex = errors.New("rule index not initialized")
