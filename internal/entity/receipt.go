package entity

// ReceiptInfo holds the receipt-level fields read from the OCR payload.
type ReceiptInfo struct {
	Merchant    string  `json:"merchant"`
	Date        string  `json:"date"` // stored as given, not parsed
	TotalAmount float64 `json:"total_amount"`
}

// ExpenseItem is the canonical line item every downstream component consumes.
type ExpenseItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"` // finite, >= 0
	Category string  `json:"category"`
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
}

// TaxMatch is the relief decision for one item.
type TaxMatch struct {
	IsDeductible    bool   `json:"is_deductible"`
	MatchedCategory string `json:"matched_category"`
	SuggestedClaim  string `json:"suggested_claim"`
	MatchedRule     string `json:"matched_rule,omitempty"`
	Error           string `json:"error,omitempty"`
	Transient       bool   `json:"transient,omitempty"`
}
