package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/relief-tracker/internal/relief"
)

const (
	sheetExpenses    = "Expenses"
	sheetSummary     = "Tax Summary"
	sheetUtilization = "Relief Utilization"
)

// Service produces XLSX bytes for a user's ledger.
type Service struct {
	relief *relief.Service
	logger *slog.Logger
}

func NewService(rs *relief.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{relief: rs, logger: logger}
}

// TaxSummaryXLSX returns a workbook with every ledger row, the deductible totals
// per category and how much of each relief limit is used.
func (s *Service) TaxSummaryXLSX(ctx context.Context, userID string) ([]byte, error) {
	start := time.Now()

	rows, err := s.relief.Expenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	summary, err := s.relief.GetTaxSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("tax summary: %w", err)
	}
	util, err := s.relief.Utilization(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("relief utilization: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetExpenses); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetSummary, sheetUtilization} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writeRow(f, sheetExpenses, 1, "Transaction Date", "Merchant", "Item/Service", "Item Category",
		"Amount", "Deductible", "Relief Category", "Matched Rule", "Suggested Claim", "Match Error", "Receipt ID")
	for i, e := range rows {
		writeRow(f, sheetExpenses, i+2, e.Date, e.Merchant, e.Description, e.Category,
			e.Amount, yesNo(e.IsTaxDeductible), e.MatchedCategory, e.MatchedRule,
			truncate(e.SuggestedClaim, 140), truncate(e.MatchError, 140), e.ReceiptID)
	}
	_ = f.SetColWidth(sheetExpenses, "A", "A", 14)
	_ = f.SetColWidth(sheetExpenses, "B", "D", 24)
	_ = f.SetColWidth(sheetExpenses, "E", "F", 12)
	_ = f.SetColWidth(sheetExpenses, "G", "H", 20)
	_ = f.SetColWidth(sheetExpenses, "I", "J", 48)
	_ = f.SetColWidth(sheetExpenses, "K", "K", 38)

	cats := make([]string, 0, len(summary))
	for c := range summary {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	writeRow(f, sheetSummary, 1, "Category", "Total Claimed", "Entries")
	for i, c := range cats {
		writeRow(f, sheetSummary, i+2, c, summary[c].TotalClaimed, len(summary[c].Expenses))
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 28)
	_ = f.SetColWidth(sheetSummary, "B", "C", 14)

	writeRow(f, sheetUtilization, 1, "Relief", "Claimed", "Limit", "Remaining", "Utilization")
	for i, u := range util {
		writeRow(f, sheetUtilization, i+2, u.Category, u.Claimed, u.Limit, u.Remaining, u.Utilization)
	}
	_ = f.SetColWidth(sheetUtilization, "A", "A", 22)
	_ = f.SetColWidth(sheetUtilization, "B", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
