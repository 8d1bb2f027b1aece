package relief

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/repository"
)

// RuleSource exposes the rules currently in force.
type RuleSource interface {
	Rules() []entity.Rule
}

// EntrySummary is one ledger row contributing to a category total.
type EntrySummary struct {
	Date           string  `json:"date"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	Merchant       string  `json:"merchant"`
	SuggestedClaim string  `json:"suggested_claim"`
	MatchedRule    string  `json:"matched_rule"`
}

// CategorySummary aggregates the deductible entries of one item category.
type CategorySummary struct {
	TotalClaimed float64        `json:"total_claimed"`
	Expenses     []EntrySummary `json:"expenses"`
}

// RuleUtilization compares what was claimed under a rule against its limit.
type RuleUtilization struct {
	Category    string  `json:"category"`
	Claimed     float64 `json:"claimed"`
	Limit       float64 `json:"limit"`
	Remaining   float64 `json:"remaining"`
	Utilization float64 `json:"utilization"`
}

// Service answers read-side questions about a user's ledger.
type Service struct {
	expenses repository.ExpenseRepository
	rules    RuleSource
	logger   *slog.Logger
}

func NewService(expenses repository.ExpenseRepository, rules RuleSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{expenses: expenses, rules: rules, logger: logger}
}

// Expenses lists the user's ledger rows, newest first.
func (s *Service) Expenses(ctx context.Context, userID string) ([]entity.Expense, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.expenses.ListByUser(ctx, userID)
}

// GetTaxSummary groups the user's deductible entries by item category.
// Entries keep ledger order inside each group.
func (s *Service) GetTaxSummary(ctx context.Context, userID string) (map[string]CategorySummary, error) {
	start := time.Now()
	rows, err := s.Expenses(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]CategorySummary)
	for _, e := range rows {
		if !e.IsTaxDeductible {
			continue
		}
		cs := out[e.Category]
		cs.TotalClaimed += e.Amount
		cs.Expenses = append(cs.Expenses, EntrySummary{
			Date:           e.Date,
			Amount:         e.Amount,
			Description:    e.Description,
			Merchant:       e.Merchant,
			SuggestedClaim: e.SuggestedClaim,
			MatchedRule:    e.MatchedRule,
		})
		out[e.Category] = cs
	}

	s.logger.Debug("relief.summary.ok",
		"user_id", userID,
		"categories", len(out),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// SpendingPatterns totals every entry per item category, deductible or not.
func (s *Service) SpendingPatterns(ctx context.Context, userID string) (map[string]float64, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.expenses.SpendingByCategory(ctx, userID)
}

// Utilization reports, for every rule in force, the deductible amount matched
// to it and how much of its limit is left. Rows without a matched rule are ignored.
func (s *Service) Utilization(ctx context.Context, userID string) ([]RuleUtilization, error) {
	rows, err := s.Expenses(ctx, userID)
	if err != nil {
		return nil, err
	}

	claimed := make(map[string]float64)
	for _, e := range rows {
		if e.IsTaxDeductible && e.MatchedRule != "" {
			claimed[e.MatchedRule] += e.Amount
		}
	}

	var rules []entity.Rule
	if s.rules != nil {
		rules = s.rules.Rules()
	}
	out := make([]RuleUtilization, 0, len(rules))
	for _, r := range rules {
		u := RuleUtilization{
			Category:  r.Category,
			Claimed:   claimed[r.Category],
			Limit:     r.Limit,
			Remaining: math.Max(r.Limit-claimed[r.Category], 0),
		}
		if r.Limit > 0 {
			u.Utilization = u.Claimed / r.Limit
		}
		out = append(out, u)
	}
	return out, nil
}
