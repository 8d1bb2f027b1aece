package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

// ExpenseRepository is the append-only expense ledger.
type ExpenseRepository interface {
	Append(ctx context.Context, e entity.Expense) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Expense, error)
	ListByReceipt(ctx context.Context, receiptID string) ([]entity.Expense, error)
	// SummarizeByCategory totals deductible entries per item category.
	SummarizeByCategory(ctx context.Context, userID string) (map[string]float64, error)
	// SpendingByCategory totals every entry per item category.
	SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error)
}

type expenseRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewExpenseRepository(drv *entsql.Driver, logger *slog.Logger) ExpenseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &expenseRepository{drv: drv, logger: logger}
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrDatabase, op, err)
}

// Append inserts one row. It never updates or merges with existing rows.
func (r *expenseRepository) Append(ctx context.Context, e entity.Expense) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(expensesTableName).
		Columns(expenseColumns[1:]...).
		Values(e.UserID, e.ReceiptID, e.LineNo, e.Source, e.Date, e.Merchant, e.Amount,
			e.Category, e.Description, e.IsTaxDeductible, e.MatchedCategory, e.SuggestedClaim,
			e.MatchedRule, e.MatchError, e.CreatedAt).
		Returning("id").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("failed to append expense", "user_id", e.UserID, "receipt_id", e.ReceiptID, "error", err)
		return 0, dbErr("insert expense", err)
	}
	defer rows.Close()

	id, err := entsql.ScanInt64(rows)
	if err != nil {
		return 0, dbErr("read expense id", err)
	}
	r.logger.Debug("expense appended", "id", id, "user_id", e.UserID, "receipt_id", e.ReceiptID, "line_no", e.LineNo)
	return id, nil
}

// ListByUser returns the user's rows, newest date first. Equal dates keep newest insert first.
func (r *expenseRepository) ListByUser(ctx context.Context, userID string) ([]entity.Expense, error) {
	return r.list(ctx, entsql.EQ("user_id", userID), entsql.Desc("date"), entsql.Desc("id"))
}

// ListByReceipt returns the rows of one receipt in line order.
func (r *expenseRepository) ListByReceipt(ctx context.Context, receiptID string) ([]entity.Expense, error) {
	if err := common.NewValidator().Field("receipt_id", receiptID, common.Required, common.UUID).Error(); err != nil {
		return nil, err
	}
	return r.list(ctx, entsql.EQ("receipt_id", receiptID), "line_no", "id")
}

func (r *expenseRepository) list(ctx context.Context, where *entsql.Predicate, orderBy ...string) ([]entity.Expense, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(expenseColumns...).
		From(entsql.Table(expensesTableName)).
		Where(where).
		OrderBy(orderBy...).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("failed to list expenses", "error", err)
		return nil, dbErr("list expenses", err)
	}
	defer rows.Close()

	var out []entity.Expense
	for rows.Next() {
		var e entity.Expense
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ReceiptID, &e.LineNo, &e.Source, &e.Date, &e.Merchant, &e.Amount,
			&e.Category, &e.Description, &e.IsTaxDeductible, &e.MatchedCategory, &e.SuggestedClaim,
			&e.MatchedRule, &e.MatchError, &e.CreatedAt,
		); err != nil {
			return nil, dbErr("scan expense", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate expenses", err)
	}
	return out, nil
}

func (r *expenseRepository) SummarizeByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	return r.sumByCategory(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.IsTrue("is_tax_deductible")))
}

func (r *expenseRepository) SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	return r.sumByCategory(ctx, entsql.EQ("user_id", userID))
}

func (r *expenseRepository) sumByCategory(ctx context.Context, where *entsql.Predicate) (map[string]float64, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select("category", entsql.As(entsql.Sum("amount"), "total")).
		From(entsql.Table(expensesTableName)).
		Where(where).
		GroupBy("category").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("failed to summarize expenses", "error", err)
		return nil, dbErr("summarize expenses", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var (
			category string
			total    float64
		)
		if err := rows.Scan(&category, &total); err != nil {
			return nil, dbErr("scan summary", err)
		}
		out[category] = total
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate summary", err)
	}
	return out, nil
}
