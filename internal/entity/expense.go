package entity

import (
	"time"
)

// Expense is one persisted ledger row. Rows are inserted once and never updated.
type Expense struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	ReceiptID       string    `json:"receipt_id"`
	LineNo          int       `json:"line_no"`
	Source          string    `json:"source"`
	Date            string    `json:"date"`
	Merchant        string    `json:"merchant"`
	Amount          float64   `json:"amount"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	IsTaxDeductible bool      `json:"is_tax_deductible"`
	MatchedCategory string    `json:"matched_category"`
	SuggestedClaim  string    `json:"suggested_claim"`
	MatchedRule     string    `json:"matched_rule"`
	MatchError      string    `json:"match_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewExpense assembles a ledger row from an item and its relief decision.
func NewExpense(userID, receiptID, source string, lineNo int, item ExpenseItem, match TaxMatch) Expense {
	return Expense{
		UserID:          userID,
		ReceiptID:       receiptID,
		LineNo:          lineNo,
		Source:          source,
		Date:            item.Date,
		Merchant:        item.Merchant,
		Amount:          item.Price,
		Category:        item.Category,
		Description:     item.Name,
		IsTaxDeductible: match.IsDeductible,
		MatchedCategory: match.MatchedCategory,
		SuggestedClaim:  match.SuggestedClaim,
		MatchedRule:     match.MatchedRule,
		MatchError:      match.Error,
	}
}
