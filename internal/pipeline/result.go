package pipeline

import (
	"github.com/joseph-ayodele/relief-tracker/constants"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
)

// ErrorKind classifies a failed receipt for callers deciding whether to retry.
type ErrorKind string

const (
	ErrorKindValidation       ErrorKind = "validation"
	ErrorKindExtractionFailed ErrorKind = "extraction_failed"
	ErrorKindTransient        ErrorKind = "transient"
	ErrorKindFatal            ErrorKind = "fatal"
)

// ItemResult is one line item with its relief decision and ledger outcome.
type ItemResult struct {
	entity.ExpenseItem
	Tax      entity.TaxMatch `json:"tax_analysis"`
	LedgerID int64           `json:"ledger_id,omitempty"`
	Error    string          `json:"error,omitempty"` // persistence failure
}

// Result is what ProcessReceipt reports for one receipt.
type Result struct {
	Success     bool               `json:"success"`
	ReceiptID   string             `json:"receipt_id,omitempty"`
	ReceiptInfo entity.ReceiptInfo `json:"receipt_info"`
	Items       []ItemResult       `json:"items"`
	State       constants.Stage    `json:"state"`
	Error       string             `json:"error,omitempty"`
	ErrorKind   ErrorKind          `json:"error_kind,omitempty"`
	ArchiveURI  string             `json:"archive_uri,omitempty"`
}

// Deductible counts the items whose match came back deductible.
func (r Result) Deductible() (count int, amount float64) {
	for _, it := range r.Items {
		if it.Tax.IsDeductible {
			count++
			amount += it.Price
		}
	}
	return count, amount
}

// Failed counts items with a match or persistence error.
func (r Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Tax.Error != "" || it.Error != "" {
			n++
		}
	}
	return n
}
