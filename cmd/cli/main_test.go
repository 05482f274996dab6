package main

import (
	"bytes"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

func TestDateRange(t *testing.T) {
	today := civil.Date{Year: 2025, Month: time.March, Day: 10}

	from, to, err := dateRange("", "", today)
	require.NoError(t, err)
	assert.Equal(t, today, from)
	assert.Equal(t, today, to)

	from, to, err = dateRange("2025-03-01", "", today)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", from.String())
	assert.Equal(t, "2025-03-01", to.String())

	from, to, err = dateRange("2025-03-01", "2025-03-31", today)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-31", to.String())
	assert.Equal(t, "2025-03-01", from.String())

	_, _, err = dateRange("2025-03-10", "2025-03-01", today)
	assert.ErrorContains(t, err, "before")

	_, _, err = dateRange("10/03/2025", "", today)
	assert.ErrorContains(t, err, "invalid from date")
}

func TestWriteSummary(t *testing.T) {
	sum := &store.Summary{
		From:  civil.Date{Year: 2025, Month: time.March, Day: 1},
		To:    civil.Date{Year: 2025, Month: time.March, Day: 2},
		Total: decimal.NewFromInt(2000),
		Count: 3,
		Categories: []store.CategoryTotal{
			{CategoryID: expense.CategoryFertilizer, Name: "ปุ๋ย", Total: decimal.NewFromInt(1800), Count: 2},
			{CategoryID: expense.CategoryPesticide, Name: "ยากำจัดศัตรูพืช", Total: decimal.NewFromInt(200), Count: 1},
		},
	}

	buf := &bytes.Buffer{}
	writeSummary(buf, sum)

	out := buf.String()
	assert.Contains(t, out, "2025-03-01 .. 2025-03-02 (2 days)")
	assert.Contains(t, out, "Total:   2,000.00 THB in 3 expenses")
	assert.Contains(t, out, "Per day: 1,000.00 THB")
	assert.Contains(t, out, "1,800.00")
	assert.Contains(t, out, "ยากำจัดศัตรูพืช")
}

func TestWriteCategories(t *testing.T) {
	buf := &bytes.Buffer{}
	writeCategories(buf)

	for _, c := range expense.Categories() {
		assert.Contains(t, buf.String(), c.Slug)
	}
}

func TestWriteModelOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	writeModelOutput(buf, &expense.ModelOutput{
		ID:        "o1",
		Model:     "gemini-2.5-flash",
		Message:   "ปุ๋ย 800",
		Prompt:    "prompt body",
		Response:  `{"amount":800}`,
		Error:     "deadline exceeded",
		CreatedAt: time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "Model:    gemini-2.5-flash")
	assert.Contains(t, out, "Created:  2025-03-10T05:00:00Z")
	assert.Contains(t, out, "Error:    deadline exceeded")
	assert.Contains(t, out, `{"amount":800}`)
}
