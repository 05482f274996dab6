package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

const (
	expensesTable     = "expenses"
	modelOutputsTable = "model_outputs"

	// numericScale is the fixed scale of BigQuery NUMERIC.
	numericScale = 9
)

type ExpenseRow struct {
	ExpenseID string `bigquery:"expense_id"` // REQUIRED

	UserID   string `bigquery:"user_id"`   // REQUIRED
	UserName string `bigquery:"user_name"` // REQUIRED

	CategoryID   int64  `bigquery:"category_id"`   // REQUIRED
	CategoryName string `bigquery:"category_name"` // REQUIRED

	Amount    *big.Rat            `bigquery:"amount"`     // REQUIRED NUMERIC
	Quantity  *big.Rat            `bigquery:"quantity"`   // NULLABLE NUMERIC
	Unit      bigquery.NullString `bigquery:"unit"`       // NULLABLE
	UnitPrice *big.Rat            `bigquery:"unit_price"` // NULLABLE NUMERIC

	Description string              `bigquery:"description"` // REQUIRED
	Note        bigquery.NullString `bigquery:"note"`        // NULLABLE

	ExpenseDate civil.Date `bigquery:"expense_date"` // REQUIRED
	Source      string     `bigquery:"source"`       // REQUIRED ("semantic" | "fallback")
	RawMessage  string     `bigquery:"raw_message"`  // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// categoryTotalRow is one row of the per-category summary query.
type categoryTotalRow struct {
	CategoryID int64    `bigquery:"category_id"`
	Total      *big.Rat `bigquery:"total"`
	Count      int64    `bigquery:"expense_count"`
}

// NewExpenseRow converts a stored expense into its BigQuery row.
func NewExpenseRow(e *store.Expense) *ExpenseRow {
	return &ExpenseRow{
		ExpenseID:    e.ID,
		UserID:       e.UserID,
		UserName:     e.UserName,
		CategoryID:   int64(e.CategoryID),
		CategoryName: e.CategoryName,
		Amount:       e.Amount.Rat(),
		Quantity:     nullDecimalRat(e.Quantity),
		Unit:         nullString(e.Unit),
		UnitPrice:    nullDecimalRat(e.UnitPrice),
		Description:  e.Description,
		Note:         nullString(e.Note),
		ExpenseDate:  e.Date,
		Source:       string(e.Source),
		RawMessage:   e.RawMessage,
		CreatedTS:    e.CreatedAt,
	}
}

// Expense converts the row back into the store model.
func (r *ExpenseRow) Expense() *store.Expense {
	e := &store.Expense{
		ID:           r.ExpenseID,
		UserID:       r.UserID,
		UserName:     r.UserName,
		CategoryID:   expense.CategoryID(r.CategoryID),
		CategoryName: r.CategoryName,
		Amount:       ratDecimal(r.Amount),
		Description:  r.Description,
		Date:         r.ExpenseDate,
		Source:       expense.Interpretation(r.Source),
		RawMessage:   r.RawMessage,
		CreatedAt:    r.CreatedTS,
	}
	if r.Quantity != nil {
		e.Quantity = decimal.NewNullDecimal(ratDecimal(r.Quantity))
	}
	if r.UnitPrice != nil {
		e.UnitPrice = decimal.NewNullDecimal(ratDecimal(r.UnitPrice))
	}
	if r.Unit.Valid {
		v := r.Unit.StringVal
		e.Unit = &v
	}
	if r.Note.Valid {
		v := r.Note.StringVal
		e.Note = &v
	}
	if e.CategoryName == "" {
		e.CategoryName = expense.CategoryByID(e.CategoryID).Name
	}
	return e
}

func ratDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.RequireFromString(r.FloatString(numericScale))
}

func nullDecimalRat(d decimal.NullDecimal) *big.Rat {
	if !d.Valid {
		return nil
	}
	return d.Decimal.Rat()
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func nullDate(d civil.Date) bigquery.NullDate {
	if store.IsZeroDate(d) {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: d, Valid: true}
}
