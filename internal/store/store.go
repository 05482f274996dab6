package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/garden-ledger/internal/expense"
)

// ErrNotFound is returned when a stored expense does not exist.
var ErrNotFound = errors.New("store: not found")

// NewExpense is a parsed expense ready to be stored.
type NewExpense struct {
	UserID      string
	UserName    string
	CategoryID  expense.CategoryID
	Amount      decimal.Decimal
	Description string
	Quantity    decimal.NullDecimal
	Unit        *string
	UnitPrice   decimal.NullDecimal
	Note        *string
	Date        civil.Date
	Source      expense.Interpretation
	RawMessage  string
}

// Expense is a stored expense row joined with its category name.
type Expense struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	UserName     string                 `json:"user_name"`
	CategoryID   expense.CategoryID     `json:"category_id"`
	CategoryName string                 `json:"category_name"`
	Amount       decimal.Decimal        `json:"amount"`
	Description  string                 `json:"description"`
	Quantity     decimal.NullDecimal    `json:"quantity"`
	Unit         *string                `json:"unit"`
	UnitPrice    decimal.NullDecimal    `json:"unit_price"`
	Note         *string                `json:"note"`
	Date         civil.Date             `json:"date"`
	Source       expense.Interpretation `json:"source"`
	RawMessage   string                 `json:"raw_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Filter selects expenses. Zero values leave a dimension unfiltered; the date
// range is inclusive on both ends.
type Filter struct {
	From       civil.Date
	To         civil.Date
	UserID     string
	CategoryID expense.CategoryID
	Limit      int
}

// SummaryQuery selects the expenses a summary is computed over.
type SummaryQuery struct {
	From   civil.Date
	To     civil.Date
	UserID string
	// Limit caps the number of per-category rows; 0 keeps all.
	Limit int
}

// CategoryTotal is the spend of one category inside a summary.
type CategoryTotal struct {
	CategoryID expense.CategoryID `json:"category_id"`
	Name       string             `json:"name"`
	Total      decimal.Decimal    `json:"total"`
	Count      int                `json:"count"`
}

// Summary aggregates expenses over a date range.
type Summary struct {
	From       civil.Date      `json:"from"`
	To         civil.Date      `json:"to"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Categories []CategoryTotal `json:"categories"`
}

// Days returns the number of calendar days the summary covers, at least 1.
func (s *Summary) Days() int {
	if IsZeroDate(s.From) || IsZeroDate(s.To) {
		return 1
	}
	if d := s.To.DaysSince(s.From) + 1; d > 1 {
		return d
	}
	return 1
}

// DailyAverage returns Total spread evenly over Days.
func (s *Summary) DailyAverage() decimal.Decimal {
	return s.Total.Div(decimal.NewFromInt(int64(s.Days())))
}

// Repository persists expenses.
type Repository interface {
	SaveExpense(ctx context.Context, e NewExpense) (*Expense, error)
	ListExpenses(ctx context.Context, f Filter) ([]*Expense, error)
	Summary(ctx context.Context, q SummaryQuery) (*Summary, error)
	Close() error
}

// FromRecord converts a parser result into a storable expense.
func FromRecord(rec *expense.ExpenseRecord, userID, userName, raw string) NewExpense {
	e := NewExpense{
		UserID:      userID,
		UserName:    userName,
		CategoryID:  rec.CategoryID,
		Amount:      decimal.NewFromFloat(rec.Amount).Round(2),
		Description: rec.Description,
		Unit:        rec.Unit,
		Note:        rec.Note,
		Date:        civil.DateOf(rec.Date),
		Source:      rec.Source,
		RawMessage:  raw,
	}
	if rec.Quantity != nil {
		e.Quantity = decimal.NewNullDecimal(decimal.NewFromFloat(*rec.Quantity))
	}
	if rec.UnitPrice != nil {
		e.UnitPrice = decimal.NewNullDecimal(decimal.NewFromFloat(*rec.UnitPrice).Round(4))
	}
	return e
}

// Materialize turns a NewExpense into a stored Expense with the given identity.
func Materialize(id string, e NewExpense, createdAt time.Time) *Expense {
	return &Expense{
		ID:           id,
		UserID:       e.UserID,
		UserName:     e.UserName,
		CategoryID:   e.CategoryID,
		CategoryName: expense.CategoryByID(e.CategoryID).Name,
		Amount:       e.Amount,
		Description:  e.Description,
		Quantity:     e.Quantity,
		Unit:         e.Unit,
		UnitPrice:    e.UnitPrice,
		Note:         e.Note,
		Date:         e.Date,
		Source:       e.Source,
		RawMessage:   e.RawMessage,
		CreatedAt:    createdAt,
	}
}

// Matches reports whether e passes the filter's date, user and category checks.
func (f Filter) Matches(e *Expense) bool {
	if !IsZeroDate(f.From) && e.Date.Before(f.From) {
		return false
	}
	if !IsZeroDate(f.To) && e.Date.After(f.To) {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.CategoryID != 0 && e.CategoryID != f.CategoryID {
		return false
	}
	return true
}

// Summarize aggregates expenses in Go for backends without SQL grouping.
// Categories are ordered by total descending, then by ID.
func Summarize(q SummaryQuery, expenses []*Expense) *Summary {
	s := &Summary{From: q.From, To: q.To, Total: decimal.Zero}

	byCategory := make(map[expense.CategoryID]*CategoryTotal)
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		s.Count++

		ct, ok := byCategory[e.CategoryID]
		if !ok {
			ct = &CategoryTotal{
				CategoryID: e.CategoryID,
				Name:       expense.CategoryByID(e.CategoryID).Name,
				Total:      decimal.Zero,
			}
			byCategory[e.CategoryID] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}

	s.Categories = make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		s.Categories = append(s.Categories, *ct)
	}
	SortCategoryTotals(s.Categories)
	if q.Limit > 0 && len(s.Categories) > q.Limit {
		s.Categories = s.Categories[:q.Limit]
	}
	return s
}

// SortCategoryTotals orders totals by amount descending, then by category ID.
func SortCategoryTotals(totals []CategoryTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].CategoryID < totals[j].CategoryID
	})
}

// IsZeroDate reports whether d is the zero civil.Date.
func IsZeroDate(d civil.Date) bool {
	return d == civil.Date{}
}
