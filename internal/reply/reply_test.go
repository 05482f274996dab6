package reply

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

func str(v string) *string { return &v }

func TestMoney(t *testing.T) {
	assert.Equal(t, "1,800.00", Money(decimal.NewFromInt(1800)))
	assert.Equal(t, "257.14", Money(decimal.RequireFromString("257.142857")))
	assert.Equal(t, "0.50", Money(decimal.RequireFromString("0.5")))
	assert.Equal(t, "1,234,567.89", Money(decimal.RequireFromString("1234567.891")))
}

func TestWhole(t *testing.T) {
	assert.Equal(t, "97", Whole(decimal.RequireFromString("96.77")))
	assert.Equal(t, "12,000", Whole(decimal.NewFromInt(12000)))
}

func TestThaiDates(t *testing.T) {
	d := civil.Date{Year: 2025, Month: time.March, Day: 1}

	assert.Equal(t, "01 มี.ค. 2568", ShortDate(d))
	assert.Equal(t, "1 มีนาคม 2568", LongDate(d))
	assert.Equal(t, "ธันวาคม 2567", MonthYear(2024, time.December))
}

func TestSaved(t *testing.T) {
	e := &store.Expense{
		CategoryName: "ปุ๋ย",
		Amount:       decimal.NewFromInt(1800),
		Description:  "ปุ๋ย",
		Quantity:     decimal.NewNullDecimal(decimal.NewFromInt(7)),
		Unit:         str("กระสอบ"),
		UnitPrice:    decimal.NewNullDecimal(decimal.RequireFromString("257.1429")),
		Note:         str("สูตร 15-0-0"),
		Date:         civil.Date{Year: 2025, Month: time.March, Day: 10},
	}

	msg := Saved(e)

	assert.True(t, strings.HasPrefix(msg, "✅ บันทึกแล้ว!"))
	assert.Contains(t, msg, "💰 ปุ๋ย: 1,800.00 บาท")
	assert.Contains(t, msg, "📦 7.00 กระสอบ")
	assert.Contains(t, msg, "💵 257.14 บาท/กระสอบ")
	assert.Contains(t, msg, "📋 สูตร 15-0-0")
	assert.Contains(t, msg, "📅 10 มี.ค. 2568")
}

func TestSaved_AmountOnly(t *testing.T) {
	msg := Saved(&store.Expense{
		Amount:      decimal.NewFromInt(800),
		Description: "รายจ่าย",
		Date:        civil.Date{Year: 2025, Month: time.March, Day: 10},
	})

	assert.Contains(t, msg, "💰 อื่นๆ: 800.00 บาท")
	assert.NotContains(t, msg, "📦")
	assert.NotContains(t, msg, "💵")
	assert.NotContains(t, msg, "📋")
}

func TestPersonalSummary_ListsTopFive(t *testing.T) {
	s := &store.Summary{Total: decimal.NewFromInt(2100), Count: 7}
	for i := 1; i <= 6; i++ {
		id := expense.CategoryID(i)
		s.Categories = append(s.Categories, store.CategoryTotal{
			CategoryID: id,
			Name:       expense.CategoryByID(id).Name,
			Total:      decimal.NewFromInt(int64(700 - i*100)),
			Count:      1,
		})
	}

	msg := PersonalSummary(s, civil.Date{Year: 2025, Month: time.March, Day: 10})

	assert.Contains(t, msg, "💸 ยอดรวม: 2,100.00 บาท")
	assert.Contains(t, msg, "📝 จำนวน: 7 รายการ")
	assert.Contains(t, msg, "📂 Top 5 หมวดหมู่:")
	assert.Equal(t, 5, strings.Count(msg, "\n• "))
	assert.NotContains(t, msg, expense.CategoryByID(6).Name+":")
}

func TestDailySummary(t *testing.T) {
	s := &store.Summary{
		From:  civil.Date{Year: 2025, Month: time.March, Day: 10},
		To:    civil.Date{Year: 2025, Month: time.March, Day: 10},
		Total: decimal.NewFromInt(1000),
		Count: 2,
		Categories: []store.CategoryTotal{
			{Name: "ปุ๋ย", Total: decimal.NewFromInt(800), Count: 1},
			{Name: "ยากำจัดศัตรูพืช", Total: decimal.NewFromInt(200), Count: 1},
		},
	}

	msg := DailySummary(s)
	assert.Contains(t, msg, "10 มีนาคม 2568")
	assert.Contains(t, msg, "📝 จำนวนรายการ: 2 รายการ")
	assert.Contains(t, msg, "• ปุ๋ย: 800.00 บาท")
	assert.Contains(t, msg, "• ยากำจัดศัตรูพืช: 200.00 บาท")
}

func TestMonthlySummary(t *testing.T) {
	s := &store.Summary{
		From:  civil.Date{Year: 2025, Month: time.February, Day: 1},
		To:    civil.Date{Year: 2025, Month: time.February, Day: 28},
		Total: decimal.NewFromInt(2800),
		Count: 4,
	}

	msg := MonthlySummary(s)
	assert.Contains(t, msg, "📊 สรุปรายจ่ายเดือนกุมภาพันธ์ 2568")
	assert.Contains(t, msg, "💸 ยอดรวม: 2,800.00 บาท")
	assert.Contains(t, msg, "📈 เฉลี่ย/วัน: 100 บาท")
}

func TestHelpExamplesParseWithoutInterpreter(t *testing.T) {
	assert.NotContains(t, Help(), "กระสอบละ 1200 7กระสอบ")
	assert.Contains(t, Help(), "ซื้อปุ๋ย 15-0-0 7 กระสอบ 1800")
}

func TestHelpListsEveryCategory(t *testing.T) {
	help := Help()
	for _, name := range expense.CategoryNames() {
		assert.Contains(t, help, name)
	}
}
