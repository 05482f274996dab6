package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

// Dataset names the project and dataset holding the ledger tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// table returns the backquoted, fully qualified name of a table.
func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// InsertExpenseWithClient streams a single expense row into the expenses table.
func InsertExpenseWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ExpenseRow) error {
	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(expensesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertExpense: inserting row: %w", err)
	}
	return nil
}

// expenseFilterSQL is shared by the list and summary queries. Zero-valued
// parameters disable their condition.
const expenseFilterSQL = `
		WHERE (@from_date IS NULL OR expense_date >= @from_date)
		  AND (@to_date IS NULL OR expense_date <= @to_date)
		  AND (@user_id = '' OR user_id = @user_id)
		  AND (@category_id = 0 OR category_id = @category_id)`

func filterParameters(f store.Filter) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "from_date", Value: nullDate(f.From)},
		{Name: "to_date", Value: nullDate(f.To)},
		{Name: "user_id", Value: f.UserID},
		{Name: "category_id", Value: int64(f.CategoryID)},
	}
}

func listExpensesSQL(ds Dataset, limit int) string {
	sql := `
		SELECT
			expense_id,
			user_id,
			user_name,
			category_id,
			category_name,
			amount,
			quantity,
			unit,
			unit_price,
			description,
			note,
			expense_date,
			source,
			raw_message,
			created_ts
		FROM ` + ds.table(expensesTable) + expenseFilterSQL + `
		ORDER BY expense_date DESC, created_ts DESC`
	if limit > 0 {
		sql += "\n\t\tLIMIT @limit"
	}
	return sql
}

func summarySQL(ds Dataset) string {
	return `
		SELECT
			category_id,
			SUM(amount) AS total,
			COUNT(*) AS expense_count
		FROM ` + ds.table(expensesTable) + expenseFilterSQL + `
		GROUP BY category_id`
}

// QueryExpensesWithClient lists expenses matching f, newest first.
func QueryExpensesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, f store.Filter) ([]*store.Expense, error) {
	q := client.Query(listExpensesSQL(ds, f.Limit))
	q.Parameters = filterParameters(f)
	if f.Limit > 0 {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Name: "limit", Value: int64(f.Limit)})
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryExpenses: query read: %w", err)
	}

	var out []*store.Expense
	for {
		var r ExpenseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryExpenses: iter next: %w", err)
		}
		out = append(out, r.Expense())
	}

	return out, nil
}

// SummaryWithClient aggregates expenses per category in BigQuery. The overall
// total and count cover every category, even when q.Limit trims the list.
func SummaryWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, q store.SummaryQuery) (*store.Summary, error) {
	query := client.Query(summarySQL(ds))
	query.Parameters = filterParameters(store.Filter{From: q.From, To: q.To, UserID: q.UserID})

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Summary: query read: %w", err)
	}

	var rows []categoryTotalRow
	for {
		var r categoryTotalRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Summary: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return summaryFromRows(q, rows), nil
}

func summaryFromRows(q store.SummaryQuery, rows []categoryTotalRow) *store.Summary {
	s := &store.Summary{From: q.From, To: q.To, Categories: make([]store.CategoryTotal, 0, len(rows))}
	for _, r := range rows {
		total := ratDecimal(r.Total)
		s.Total = s.Total.Add(total)
		s.Count += int(r.Count)

		id := expense.CategoryID(r.CategoryID)
		s.Categories = append(s.Categories, store.CategoryTotal{
			CategoryID: id,
			Name:       expense.CategoryByID(id).Name,
			Total:      total,
			Count:      int(r.Count),
		})
	}

	store.SortCategoryTotals(s.Categories)
	if q.Limit > 0 && len(s.Categories) > q.Limit {
		s.Categories = s.Categories[:q.Limit]
	}
	return s
}
