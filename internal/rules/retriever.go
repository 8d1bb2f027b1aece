package rules

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/joseph-ayodele/relief-tracker/internal/embed"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

// Retriever serves lookups from the current index. Rebuilds swap the whole index
// pointer, so a reader sees either the old index or the new one.
type Retriever struct {
	current atomic.Pointer[Index]
	logger  *slog.Logger
}

func NewRetriever(ix *Index, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retriever{logger: logger}
	if ix != nil {
		r.current.Store(ix)
	}
	return r
}

// Current returns the index in use, or nil.
func (r *Retriever) Current() *Index { return r.current.Load() }

// Swap installs ix and returns the previous index.
func (r *Retriever) Swap(ix *Index) *Index {
	old := r.current.Swap(ix)
	r.logger.Info("rules.index.swap", "rules", ix.Len(), "embedder", ix.EmbedderName())
	return old
}

// Rebuild builds a new index and swaps it in. On failure the current index stays.
func (r *Retriever) Rebuild(ctx context.Context, rules []entity.Rule, embedder embed.Embedder) error {
	ix, err := Build(ctx, rules, embedder)
	if err != nil {
		r.logger.Error("rules.index.rebuild.error", "err", err)
		return err
	}
	r.Swap(ix)
	return nil
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	ix := r.current.Load()
	if ix == nil {
		return nil, ErrNoIndex
	}
	return ix.Retrieve(ctx, query, k)
}

// Rules returns the rules of the current index, or nil.
func (r *Retriever) Rules() []entity.Rule {
	ix := r.current.Load()
	if ix == nil {
		return nil
	}
	return ix.Rules()
}
