package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func march(d int) civil.Date {
	return civil.Date{Year: 2025, Month: time.March, Day: d}
}

func TestRepository_SaveExpense(t *testing.T) {
	repo := openTestRepo(t)
	unit, note := "กระสอบ", "สูตร 15-0-0"

	saved, err := repo.SaveExpense(context.Background(), store.NewExpense{
		UserID:      "U1",
		UserName:    "สมชาย",
		CategoryID:  expense.CategoryFertilizer,
		Amount:      decimal.RequireFromString("1800"),
		Description: "ปุ๋ย",
		Quantity:    decimal.NewNullDecimal(decimal.NewFromInt(7)),
		Unit:        &unit,
		UnitPrice:   decimal.NewNullDecimal(decimal.RequireFromString("257.1429")),
		Note:        &note,
		Date:        march(10),
		Source:      expense.InterpretationSemantic,
		RawMessage:  "ซื้อปุ๋ย 15-0-0 7กระสอบ 1800",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "ปุ๋ย", saved.CategoryName)
	assert.Equal(t, "1800", saved.Amount.String())
	assert.Equal(t, "7", saved.Quantity.Decimal.String())
	assert.Equal(t, "257.1429", saved.UnitPrice.Decimal.String())
	require.NotNil(t, saved.Unit)
	assert.Equal(t, "กระสอบ", *saved.Unit)
	assert.Equal(t, "สูตร 15-0-0", *saved.Note)
	assert.Equal(t, march(10), saved.Date)
	assert.Equal(t, expense.InterpretationSemantic, saved.Source)
}

func TestRepository_NullableColumns(t *testing.T) {
	repo := openTestRepo(t)

	saved, err := repo.SaveExpense(context.Background(), store.NewExpense{
		CategoryID:  expense.CategoryOther,
		Amount:      decimal.RequireFromString("45.50"),
		Description: "รายจ่าย",
		Date:        march(1),
	})
	require.NoError(t, err)

	assert.Equal(t, "45.5", saved.Amount.String())
	assert.False(t, saved.Quantity.Valid)
	assert.False(t, saved.UnitPrice.Valid)
	assert.Nil(t, saved.Unit)
	assert.Nil(t, saved.Note)
}

func TestRepository_ListAndSummary(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	seed := []store.NewExpense{
		{UserID: "U1", CategoryID: expense.CategoryFertilizer, Amount: decimal.NewFromInt(800), Description: "ปุ๋ย", Date: march(1)},
		{UserID: "U1", CategoryID: expense.CategoryFertilizer, Amount: decimal.NewFromInt(1000), Description: "ปุ๋ย", Date: march(2)},
		{UserID: "U1", CategoryID: expense.CategoryWater, Amount: decimal.RequireFromString("99.75"), Description: "น้ำ", Date: march(2)},
		{UserID: "U2", CategoryID: expense.CategoryLabor, Amount: decimal.NewFromInt(2000), Description: "ค่าแรง", Date: march(2)},
		{UserID: "U1", CategoryID: expense.CategoryLabor, Amount: decimal.NewFromInt(500), Description: "ค่าแรง", Date: march(5)},
	}
	for _, e := range seed {
		_, err := repo.SaveExpense(ctx, e)
		require.NoError(t, err)
	}

	list, err := repo.ListExpenses(ctx, store.Filter{UserID: "U1"})
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, march(5), list[0].Date)

	list, err = repo.ListExpenses(ctx, store.Filter{From: march(2), To: march(2), CategoryID: expense.CategoryFertilizer})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1000", list[0].Amount.String())

	s, err := repo.Summary(ctx, store.SummaryQuery{From: march(1), To: march(2), UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "1899.75", s.Total.String())
	assert.Equal(t, 3, s.Count)
	require.Len(t, s.Categories, 2)
	assert.Equal(t, "ปุ๋ย", s.Categories[0].Name)
	assert.Equal(t, "1800", s.Categories[0].Total.String())
	assert.Equal(t, 2, s.Categories[0].Count)

	top, err := repo.Summary(ctx, store.SummaryQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, top.Count)
	require.Len(t, top.Categories, 1)
	assert.Equal(t, expense.CategoryLabor, top.Categories[0].CategoryID)
}

func TestRepository_EmptySummary(t *testing.T) {
	repo := openTestRepo(t)

	s, err := repo.Summary(context.Background(), store.SummaryQuery{UserID: "nobody"})
	require.NoError(t, err)
	assert.True(t, s.Total.IsZero())
	assert.Zero(t, s.Count)
	assert.Empty(t, s.Categories)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	repo, err := NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	var n int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&n))
	assert.Equal(t, len(expense.Categories()), n)
}
