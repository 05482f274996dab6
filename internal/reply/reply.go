// Package reply renders the Thai chat replies sent back to users and groups.
package reply

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

const rule = "━━━━━━━━━━━━━━"

// Fixed replies.
const (
	NoExpensesToday = "คุณยังไม่มีรายจ่ายวันนี้"

	Unparsable = "❌ ไม่เข้าใจข้อความ\n\nลองพิมพ์:\n\"ซื้อปุ๋ย 800\"\n\"ปุ๋ย 5 ถุง 800\"\n\"ซื้อปุ๋ย 15-0-0 7 กระสอบ 1800\"\n\nหรือพิมพ์ \"help\" ดูวิธีใช้"

	GenericError = "❌ เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง"
)

// PersonalSummaryLimit is how many categories a personal summary lists.
const PersonalSummaryLimit = 5

// Saved confirms a stored expense.
func Saved(e *store.Expense) string {
	category := e.CategoryName
	if category == "" {
		category = expense.CategoryByID(expense.CategoryOther).Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ บันทึกแล้ว!\n%s\n💰 %s: %s บาท\n📝 %s", rule, category, Money(e.Amount), e.Description)

	if e.Quantity.Valid && e.Unit != nil && *e.Unit != "" {
		fmt.Fprintf(&b, "\n📦 %s %s", Money(e.Quantity.Decimal), *e.Unit)
		if e.UnitPrice.Valid {
			fmt.Fprintf(&b, "\n💵 %s บาท/%s", Money(e.UnitPrice.Decimal), *e.Unit)
		}
	}

	if e.Note != nil && *e.Note != "" {
		fmt.Fprintf(&b, "\n📋 %s", *e.Note)
	}

	fmt.Fprintf(&b, "\n📅 %s\n%s", ShortDate(e.Date), rule)
	return b.String()
}

// PersonalSummary answers a user's "summary" command for today.
func PersonalSummary(s *store.Summary, today civil.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 สรุปรายจ่ายของคุณวันนี้\n%s\n%s\n💸 ยอดรวม: %s บาท\n📝 จำนวน: %d รายการ",
		ShortDate(today), rule, Money(s.Total), s.Count)

	if len(s.Categories) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n📂 Top %d หมวดหมู่:", rule, PersonalSummaryLimit)
		for i, c := range s.Categories {
			if i == PersonalSummaryLimit {
				break
			}
			fmt.Fprintf(&b, "\n• %s: %s บาท (%d รายการ)", c.Name, Money(c.Total), c.Count)
		}
	}

	b.WriteString("\n" + rule)
	return b.String()
}

// DailySummary is the scheduled group summary for the day in s.From.
func DailySummary(s *store.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 สรุปรายจ่ายวันนี้\n%s\n%s\n💸 ยอดรวม: %s บาท\n📝 จำนวนรายการ: %d รายการ",
		LongDate(s.From), rule, Money(s.Total), s.Count)

	if len(s.Categories) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n📂 แยกตามหมวดหมู่:", rule)
		for _, c := range s.Categories {
			fmt.Fprintf(&b, "\n• %s: %s บาท", c.Name, Money(c.Total))
		}
	}

	b.WriteString("\n" + rule)
	return b.String()
}

// MonthlySummary is the scheduled group summary for the month starting at
// s.From. The daily average spreads the total over every day of the range.
func MonthlySummary(s *store.Summary) string {
	return fmt.Sprintf("📊 สรุปรายจ่ายเดือน%s\n%s\n💸 ยอดรวม: %s บาท\n📝 จำนวนรายการ: %d รายการ\n📈 เฉลี่ย/วัน: %s บาท\n%s",
		MonthYear(s.From.Year, s.From.Month), rule, Money(s.Total), s.Count, Whole(s.DailyAverage()), rule)
}

// Help lists the accepted message shapes and commands.
func Help() string {
	names := expense.CategoryNames()
	return `🌱 บอทบัญชีรายจ่ายสวน

📝 วิธีใช้งาน:

1️⃣ บันทึกรายจ่าย (พิมพ์อะไรก็ได้):

   📌 แบบง่าย:
   "ปุ๋ย 800"
   "ค่าแรง 2000"

   📌 ระบุปริมาณ:
   "ปุ๋ย 5 ถุง 800"
   "ยา 4 ขวด 200"

   📌 ระบุราคาต่อหน่วย:
   "ปุ๋ย 5 ถุง ถุงละ 160"
   "ค่าแรง 2 คน คนละ 500"

   📌 ระบุขนาด/รายละเอียด:
   "ปุ๋ย 5 ถุง ถุงละ 160 ถุงละ 10 โล"
   "ยา 4 ขวด 200 ขวดละ 500ml"
   "ซื้อปุ๋ย 15-0-0 7 กระสอบ 1800"

2️⃣ ดูสรุป:
   "สรุปวันนี้" - สรุปของคุณ
   "สรุป"

3️⃣ ช่วยเหลือ:
   "help" หรือ "ช่วย"

` + rule + `
🤖 ระบบใช้ AI อ่านข้อความ
พิมพ์แบบไหนก็เข้าใจ!

📂 หมวดหมู่ที่รองรับ:
- ` + strings.Join(names, " • ") + `

💡 ระบบแยกข้อมูลแต่ละคน
แต่ละคนดูได้เฉพาะรายจ่ายของตัวเอง!`
}
