package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

const selectExpense = `
SELECT t.id, t.user_id, t.user_name, t.category_id, COALESCE(c.name, ''),
       t.amount_satang, t.description, t.quantity, t.unit, t.unit_price,
       t.note, t.date, t.source, t.raw_message, t.created_at
FROM transactions t
LEFT JOIN categories c ON t.category_id = c.id`

// Repository stores expenses in a SQLite file.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository opens (and migrates) the database at dbPath.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("NewRepository: create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("NewRepository: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewRepository: ping database: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Close implements store.Repository.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveExpense implements store.Repository.
func (r *Repository) SaveExpense(ctx context.Context, e store.NewExpense) (*store.Expense, error) {
	id := uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO transactions
    (id, user_id, user_name, category_id, amount_satang, description,
     quantity, unit, unit_price, note, date, source, raw_message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		e.UserID,
		e.UserName,
		int(e.CategoryID),
		toSatang(e.Amount),
		e.Description,
		nullDecimalString(e.Quantity),
		nullString(e.Unit),
		nullDecimalString(e.UnitPrice),
		nullString(e.Note),
		e.Date.String(),
		string(e.Source),
		e.RawMessage,
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("SaveExpense: insert: %w", err)
	}

	saved, err := r.getExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SaveExpense: %w", err)
	}
	return saved, nil
}

// ListExpenses implements store.Repository. Newest dates come first.
func (r *Repository) ListExpenses(ctx context.Context, f store.Filter) ([]*store.Expense, error) {
	where, args := filterClause(f.From, f.To, f.UserID, f.CategoryID)

	query := selectExpense + where + " ORDER BY t.date DESC, t.created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: query: %w", err)
	}
	defer rows.Close()

	var out []*store.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpenses: iterate: %w", err)
	}
	return out, nil
}

// Summary implements store.Repository.
func (r *Repository) Summary(ctx context.Context, q store.SummaryQuery) (*store.Summary, error) {
	where, args := filterClause(q.From, q.To, q.UserID, 0)

	s := &store.Summary{From: q.From, To: q.To}

	var totalSatang int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(t.amount_satang), 0), COUNT(*) FROM transactions t"+where, args...,
	).Scan(&totalSatang, &s.Count)
	if err != nil {
		return nil, fmt.Errorf("Summary: totals: %w", err)
	}
	s.Total = fromSatang(totalSatang)

	query := `
SELECT c.id, c.name, SUM(t.amount_satang) AS total, COUNT(*)
FROM transactions t
JOIN categories c ON t.category_id = c.id` + where + `
GROUP BY c.id, c.name
ORDER BY total DESC, c.id`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Summary: categories: %w", err)
	}
	defer rows.Close()

	s.Categories = []store.CategoryTotal{}
	for rows.Next() {
		var (
			ct     store.CategoryTotal
			id     int
			satang int64
		)
		if err := rows.Scan(&id, &ct.Name, &satang, &ct.Count); err != nil {
			return nil, fmt.Errorf("Summary: scan category: %w", err)
		}
		ct.CategoryID = expense.CategoryID(id)
		ct.Total = fromSatang(satang)
		s.Categories = append(s.Categories, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Summary: iterate: %w", err)
	}
	return s, nil
}

func (r *Repository) getExpense(ctx context.Context, id string) (*store.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectExpense+" WHERE t.id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return e, err
}

func filterClause(from, to civil.Date, userID string, categoryID expense.CategoryID) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if !store.IsZeroDate(from) {
		conds = append(conds, "t.date >= ?")
		args = append(args, from.String())
	}
	if !store.IsZeroDate(to) {
		conds = append(conds, "t.date <= ?")
		args = append(args, to.String())
	}
	if userID != "" {
		conds = append(conds, "t.user_id = ?")
		args = append(args, userID)
	}
	if categoryID != 0 {
		conds = append(conds, "t.category_id = ?")
		args = append(args, int(categoryID))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(s scanner) (*store.Expense, error) {
	var (
		e                         store.Expense
		categoryID                int
		satang                    int64
		quantity, unit, unitPrice sql.NullString
		note                      sql.NullString
		date, source, createdAt   string
	)
	err := s.Scan(
		&e.ID, &e.UserID, &e.UserName, &categoryID, &e.CategoryName,
		&satang, &e.Description, &quantity, &unit, &unitPrice,
		&note, &date, &source, &e.RawMessage, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.CategoryID = expense.CategoryID(categoryID)
	e.Amount = fromSatang(satang)
	e.Source = expense.Interpretation(source)
	if e.Quantity, err = parseNullDecimal(quantity); err != nil {
		return nil, fmt.Errorf("scan quantity: %w", err)
	}
	if e.UnitPrice, err = parseNullDecimal(unitPrice); err != nil {
		return nil, fmt.Errorf("scan unit_price: %w", err)
	}
	if unit.Valid {
		e.Unit = &unit.String
	}
	if note.Valid {
		e.Note = &note.String
	}
	if e.Date, err = civil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("scan date: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("scan created_at: %w", err)
	}
	return &e, nil
}

func toSatang(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromSatang(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func nullDecimalString(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
