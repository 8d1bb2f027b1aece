package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const expensesTableName = "expenses"

// expenseColumns lists the ledger columns in select order.
var expenseColumns = []string{
	"id", "user_id", "receipt_id", "line_no", "source", "date", "merchant", "amount",
	"category", "description", "is_tax_deductible", "matched_category", "suggested_claim",
	"matched_rule", "match_error", "created_at",
}

func expensesTable() *schema.Table {
	str := func(name string, size int64) *schema.Column {
		return &schema.Column{Name: name, Type: field.TypeString, Size: size, Default: ""}
	}
	t := schema.NewTable(expensesTableName).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt64, Increment: true}).
		AddColumn(&schema.Column{Name: "user_id", Type: field.TypeString, Size: 128}).
		AddColumn(str("receipt_id", 36)).
		AddColumn(&schema.Column{Name: "line_no", Type: field.TypeInt}).
		AddColumn(str("source", 64)).
		AddColumn(str("date", 64)).
		AddColumn(str("merchant", 255)).
		AddColumn(&schema.Column{Name: "amount", Type: field.TypeFloat64}).
		AddColumn(str("category", 255)).
		AddColumn(str("description", 1024)).
		AddColumn(&schema.Column{Name: "is_tax_deductible", Type: field.TypeBool, Default: false}).
		AddColumn(str("matched_category", 255)).
		AddColumn(str("suggested_claim", 1024)).
		AddColumn(str("matched_rule", 255)).
		AddColumn(str("match_error", 1024)).
		AddColumn(&schema.Column{Name: "created_at", Type: field.TypeTime})
	t.AddIndex("expenses_user_id_date", false, []string{"user_id", "date"})
	t.AddIndex("expenses_receipt_id", false, []string{"receipt_id"})
	return t
}

// Migrate creates or updates the ledger schema. It only ever adds; columns and indexes are never dropped.
func Migrate(ctx context.Context, drv *entsql.Driver, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, expensesTable()); err != nil {
		logger.Error("ledger migration failed", "error", err)
		return fmt.Errorf("migrate ledger: %w", err)
	}
	logger.Info("ledger schema up to date", "table", expensesTableName)
	return nil
}
