package entity

// Rule is one tax-relief rule of the knowledge base.
type Rule struct {
	Category    string   `json:"category" yaml:"category"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"` // advisory only
	Limit       float64  `json:"limit" yaml:"limit"`
	Description string   `json:"description" yaml:"description"`
}
