package expense

import (
	"time"
)

// LexicalFacts holds the deterministic signals pulled out of one message
// before any interpretation happens. It is never persisted.
type LexicalFacts struct {
	Cleaned         string    // message with the purchase verb stripped
	Formula         string    // "15-0-0" or ""
	Quantity        *float64  // from "<int><unit>" or nil
	Unit            string    // unit word matched together with Quantity
	Numbers         []float64 // every numeric literal left after formula removal, in order
	TextSansFormula string    // Cleaned with the formula code removed
}

// HasQuantity reports whether a quantity+unit pair was found.
func (f LexicalFacts) HasQuantity() bool {
	return f.Quantity != nil
}

// CandidateRecord is an interpreter's unreconciled guess at the expense fields.
type CandidateRecord struct {
	Description string
	Category    string
	Quantity    *float64
	Unit        *string
	Amount      *float64
	UnitPrice   *float64
	Note        *string
}

// Interpretation names the path that produced a record.
type Interpretation string

const (
	InterpretationSemantic Interpretation = "semantic"
	InterpretationFallback Interpretation = "fallback"
)

// ExpenseRecord is the final structured output of the parser.
type ExpenseRecord struct {
	CategoryID   CategoryID     `json:"category_id"`
	CategoryName string         `json:"category_name"`
	Amount       float64        `json:"amount"`
	Description  string         `json:"description"`
	Quantity     *float64       `json:"quantity"`
	Unit         *string        `json:"unit"`
	UnitPrice    *float64       `json:"unit_price"`
	Note         *string        `json:"note"`
	Date         time.Time      `json:"date"`
	Source       Interpretation `json:"source"`
}

// DateString returns the transaction date as YYYY-MM-DD.
func (r *ExpenseRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

func floatPtr(v float64) *float64 {
	return &v
}

func strPtr(s string) *string {
	return &s
}
