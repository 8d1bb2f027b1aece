package relief

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/repository"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

type staticRules []entity.Rule

func (s staticRules) Rules() []entity.Rule { return s }

func newLedger(t *testing.T) repository.ExpenseRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relief.db")
	db, err := repository.Open(context.Background(), repository.Config{
		Driver: "sqlite",
		DSN:    "file:" + path + "?_pragma=busy_timeout(5000)",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, repository.Migrate(context.Background(), db.Driver, nil))
	return repository.NewExpenseRepository(db.Driver, nil)
}

func row(receipt, date, category string, amount float64, deductible bool, rule string) entity.Expense {
	return entity.Expense{
		UserID:          "alice",
		ReceiptID:       receipt,
		LineNo:          1,
		Source:          "receipt_test",
		Date:            date,
		Merchant:        "Guardian",
		Amount:          amount,
		Category:        category,
		Description:     category + " item",
		IsTaxDeductible: deductible,
		MatchedRule:     rule,
	}
}

func TestGetTaxSummary_TwoMedicalReceipts(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	_, err := ledger.Append(ctx, row("r1", "2024-01-10", "Medical", 500, true, "Medical"))
	require.NoError(t, err)
	_, err = ledger.Append(ctx, row("r2", "2024-02-10", "Medical", 500, true, "Medical"))
	require.NoError(t, err)

	svc := NewService(ledger, staticRules(rules.DefaultRules()), nil)
	summary, err := svc.GetTaxSummary(ctx, "alice")
	require.NoError(t, err)

	require.Contains(t, summary, "Medical")
	assert.InDelta(t, 1000.0, summary["Medical"].TotalClaimed, 1e-9)
	require.Len(t, summary["Medical"].Expenses, 2)
	assert.Equal(t, "2024-02-10", summary["Medical"].Expenses[0].Date)
}

func TestGetTaxSummary_SkipsNonDeductible(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	_, err := ledger.Append(ctx, row("r1", "2024-01-10", "Groceries", 80, false, ""))
	require.NoError(t, err)
	_, err = ledger.Append(ctx, row("r1", "2024-01-10", "Electronics", 1200, true, "Lifestyle"))
	require.NoError(t, err)

	svc := NewService(ledger, nil, nil)
	summary, err := svc.GetTaxSummary(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, summary, "Groceries")
	assert.InDelta(t, 1200.0, summary["Electronics"].TotalClaimed, 1e-9)

	spending, err := svc.SpendingPatterns(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 80.0, spending["Groceries"], 1e-9)
	assert.InDelta(t, 1200.0, spending["Electronics"], 1e-9)
}

func TestGetTaxSummary_UnknownUserIsEmpty(t *testing.T) {
	svc := NewService(newLedger(t), nil, nil)
	summary, err := svc.GetTaxSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestGetTaxSummary_RejectsBadUserID(t *testing.T) {
	svc := NewService(newLedger(t), nil, nil)
	_, err := svc.GetTaxSummary(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.SpendingPatterns(context.Background(), "../etc")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUtilization(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	_, err := ledger.Append(ctx, row("r1", "2024-01-10", "Electronics", 2000, true, "Lifestyle"))
	require.NoError(t, err)
	_, err = ledger.Append(ctx, row("r2", "2024-01-11", "Books", 900, true, "Lifestyle"))
	require.NoError(t, err)
	_, err = ledger.Append(ctx, row("r3", "2024-01-12", "Clinic", 300, false, "Medical"))
	require.NoError(t, err)

	svc := NewService(ledger, staticRules(rules.DefaultRules()), nil)
	got, err := svc.Utilization(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 5)

	byCat := map[string]RuleUtilization{}
	for _, u := range got {
		byCat[u.Category] = u
	}
	life := byCat["Lifestyle"]
	assert.InDelta(t, 2900.0, life.Claimed, 1e-9)
	assert.InDelta(t, 0.0, life.Remaining, 1e-9)
	assert.InDelta(t, 2900.0/2500.0, life.Utilization, 1e-9)

	med := byCat["Medical"]
	assert.InDelta(t, 0.0, med.Claimed, 1e-9)
	assert.InDelta(t, 6000.0, med.Remaining, 1e-9)
}
