package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/metrics"
	"github.com/joseph-ayodele/relief-tracker/internal/repository"
)

// Matcher decides the relief for one item. It reports failures on the result.
type Matcher interface {
	Match(ctx context.Context, item entity.ExpenseItem) entity.TaxMatch
}

// MatchStage matches items and appends each to the ledger.
type MatchStage struct {
	matcher Matcher
	ledger  repository.ExpenseRepository
	workers int
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

func NewMatchStage(m Matcher, ledger repository.ExpenseRepository, workers int, mx *metrics.Pipeline, logger *slog.Logger) *MatchStage {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &MatchStage{matcher: m, ledger: ledger, workers: workers, metrics: mx, logger: logger}
}

type receiptRef struct {
	userID    string
	receiptID string
	source    string
}

// Run matches and persists every item. Results keep the input order; a failing
// item never stops the others.
func (s *MatchStage) Run(ctx context.Context, ref receiptRef, items []entity.ExpenseItem) []ItemResult {
	out := make([]ItemResult, len(items))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, item := range items {
		g.Go(func() error {
			out[i] = s.one(ctx, ref, i+1, item)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *MatchStage) one(ctx context.Context, ref receiptRef, lineNo int, item entity.ExpenseItem) ItemResult {
	start := time.Now()
	res := ItemResult{ExpenseItem: item}
	res.Tax = s.matcher.Match(ctx, item)
	s.metrics.ObserveStage("match", start)
	switch {
	case res.Tax.Error != "":
		s.metrics.Item("error")
	case res.Tax.IsDeductible:
		s.metrics.Item("deductible")
	default:
		s.metrics.Item("not_deductible")
	}

	pstart := time.Now()
	id, err := s.ledger.Append(ctx, entity.NewExpense(ref.userID, ref.receiptID, ref.source, lineNo, item, res.Tax))
	s.metrics.ObserveStage("persist", pstart)
	if err != nil {
		s.logger.Error("pipeline.persist.error",
			"receipt_id", ref.receiptID, "line_no", lineNo, "item", item.Name, "error", err)
		res.Error = "persist: " + err.Error()
		return res
	}
	res.LedgerID = id
	return res
}
