package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/relief-tracker/constants"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

// Retriever is the part of rules.Retriever the matcher needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rules.Hit, error)
}

type Config struct {
	TopK    int
	Timeout time.Duration // per generator attempt
	Retry   llm.RetryConfig
}

type Matcher struct {
	retriever Retriever
	gen       llm.Generator
	cfg       Config
	logger    *slog.Logger
}

func New(retriever Retriever, gen llm.Generator, cfg Config, logger *slog.Logger) *Matcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = llm.DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{retriever: retriever, gen: gen, cfg: cfg, logger: logger}
}

// Match never fails: collaborator errors come back as an annotated, non-deductible result.
func (m *Matcher) Match(ctx context.Context, item entity.ExpenseItem) entity.TaxMatch {
	start := time.Now()
	query := BuildQuery(item)

	hits, err := m.retriever.Retrieve(ctx, query, m.cfg.TopK)
	if err != nil {
		m.logger.Error("matcher.retrieve.error", "item", item.Name, "error", err)
		return entity.TaxMatch{Error: "match error: retrieve rules: " + err.Error()}
	}

	prompt := BuildPrompt(item, hits)
	text, attempts, err := llm.Retry(ctx, m.cfg.Retry, m.logger, func(ctx context.Context) (string, error) {
		cctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
		out, err := m.gen.Generate(cctx, prompt)
		if err != nil && llm.IsTimeout(err) && !llm.IsTransient(err) {
			err = llm.NewTransientError(err)
		}
		return out, err
	})
	if err != nil {
		res := entity.TaxMatch{Transient: llm.IsTransient(err)}
		if llm.IsTimeout(err) {
			res.Error = fmt.Sprintf("match timeout after %d attempt(s): %v", attempts, err)
		} else {
			res.Error = fmt.Sprintf("match error: %v", err)
		}
		m.logger.Warn("matcher.generate.error",
			"item", item.Name, "attempts", attempts, "transient", res.Transient, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return res
	}

	ans := ParseAnswer(text)
	res := entity.TaxMatch{
		IsDeductible:    ans.Deductible,
		MatchedCategory: ans.Category,
		SuggestedClaim:  ans.Claimable,
		MatchedRule:     resolveRule(ans.Category, hits),
	}
	m.logger.Info("matcher.match.ok",
		"item", item.Name,
		"deductible", res.IsDeductible,
		"category", res.MatchedCategory,
		"rule", res.MatchedRule,
		"attempts", attempts,
		"elapsed_ms", time.Since(start).Milliseconds())
	return res
}

// resolveRule picks the retrieved rule the answer's category names, or "".
func resolveRule(category string, hits []rules.Hit) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return ""
	}
	lower := strings.ToLower(category)
	for _, h := range hits {
		if strings.Contains(lower, strings.ToLower(h.Rule.Category)) {
			return h.Rule.Category
		}
	}
	if c, ok := constants.Canonicalize(category); ok {
		for _, h := range hits {
			if strings.EqualFold(h.Rule.Category, string(c)) {
				return h.Rule.Category
			}
		}
	}
	return ""
}
