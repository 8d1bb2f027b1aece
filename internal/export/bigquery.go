package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/repository"
)

// ExpenseRow is the analytics shape of one ledger row.
type ExpenseRow struct {
	UserID          string    `bigquery:"user_id"`
	LedgerID        int64     `bigquery:"ledger_id"`
	ReceiptID       string    `bigquery:"receipt_id"`
	LineNo          int64     `bigquery:"line_no"`
	Source          string    `bigquery:"source"`
	Date            string    `bigquery:"date"`
	Merchant        string    `bigquery:"merchant"`
	Amount          float64   `bigquery:"amount"`
	Category        string    `bigquery:"category"`
	Description     string    `bigquery:"description"`
	IsTaxDeductible bool      `bigquery:"is_tax_deductible"`
	MatchedCategory string    `bigquery:"matched_category"`
	SuggestedClaim  string    `bigquery:"suggested_claim"`
	MatchedRule     string    `bigquery:"matched_rule"`
	MatchError      string    `bigquery:"match_error"`
	CreatedAt       time.Time `bigquery:"created_at"`
	ExportedAt      time.Time `bigquery:"exported_at"`
}

func toRow(e entity.Expense, now time.Time) ExpenseRow {
	return ExpenseRow{
		UserID:          e.UserID,
		LedgerID:        e.ID,
		ReceiptID:       e.ReceiptID,
		LineNo:          int64(e.LineNo),
		Source:          e.Source,
		Date:            e.Date,
		Merchant:        e.Merchant,
		Amount:          e.Amount,
		Category:        e.Category,
		Description:     e.Description,
		IsTaxDeductible: e.IsTaxDeductible,
		MatchedCategory: e.MatchedCategory,
		SuggestedClaim:  e.SuggestedClaim,
		MatchedRule:     e.MatchedRule,
		MatchError:      e.MatchError,
		CreatedAt:       e.CreatedAt,
		ExportedAt:      now,
	}
}

var expenseSchema = sync.OnceValues(func() (bigquery.Schema, error) {
	return bigquery.InferSchema(ExpenseRow{})
})

// inserter is the part of *bigquery.Inserter used here.
type inserter interface {
	Put(ctx context.Context, src any) error
}

// BigQuerySink streams ledger rows into an analytics table.
type BigQuerySink struct {
	client    *bigquery.Client
	table     *bigquery.Table
	ins       inserter
	expenses  repository.ExpenseRepository
	batchSize int
	logger    *slog.Logger
}

func NewBigQuerySink(ctx context.Context, project, dataset, table string, expenses repository.ExpenseRepository, logger *slog.Logger, opts ...option.ClientOption) (*BigQuerySink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if project == "" {
		return nil, errors.New("bigquery project is required")
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	t := client.DatasetInProject(project, dataset).Table(table)
	return &BigQuerySink{
		client:    client,
		table:     t,
		ins:       t.Inserter(),
		expenses:  expenses,
		batchSize: 500,
		logger:    logger,
	}, nil
}

// EnsureTable creates the destination table when it does not exist yet.
func (s *BigQuerySink) EnsureTable(ctx context.Context) error {
	if s.table == nil {
		return nil
	}
	schema, err := expenseSchema()
	if err != nil {
		return fmt.Errorf("infer schema: %w", err)
	}
	err = s.table.Create(ctx, &bigquery.TableMetadata{Schema: schema})
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Export inserts every ledger row of the user. Insert ids are derived from the
// ledger id so a repeated export does not duplicate rows within BigQuery's dedupe window.
func (s *BigQuerySink) Export(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	rows, err := s.expenses.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("query expenses: %w", err)
	}
	schema, err := expenseSchema()
	if err != nil {
		return 0, fmt.Errorf("infer schema: %w", err)
	}
	now := time.Now().UTC()
	sent := 0
	for lo := 0; lo < len(rows); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(rows))
		batch := make([]*bigquery.StructSaver, 0, hi-lo)
		for _, e := range rows[lo:hi] {
			batch = append(batch, &bigquery.StructSaver{
				Schema:   schema,
				Struct:   toRow(e, now),
				InsertID: userID + ":" + strconv.FormatInt(e.ID, 10),
			})
		}
		if err := s.ins.Put(ctx, batch); err != nil {
			return sent, fmt.Errorf("inserting rows: %w", err)
		}
		sent += len(batch)
	}
	s.logger.Info("export.bigquery.ok",
		"user_id", userID, "rows", sent, "elapsed_ms", time.Since(start).Milliseconds())
	return sent, nil
}

func (s *BigQuerySink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
