package reply

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// buddhistEraOffset converts a Gregorian year to the Thai solar calendar.
const buddhistEraOffset = 543

var (
	thaiMonthsShort = [...]string{
		"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
		"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
	}
	thaiMonthsLong = [...]string{
		"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
		"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
	}
)

var printer = message.NewPrinter(language.Thai)

// Money formats an amount with thousands separators and two decimals, e.g. "1,800.00".
func Money(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Whole formats an amount rounded to an integer with thousands separators.
func Whole(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.Round(0).InexactFloat64(), number.Scale(0)))
}

// ShortDate renders d like "10 มี.ค. 2568".
func ShortDate(d civil.Date) string {
	return fmt.Sprintf("%02d %s %d", d.Day, monthName(thaiMonthsShort[:], d.Month), d.Year+buddhistEraOffset)
}

// LongDate renders d like "10 มีนาคม 2568".
func LongDate(d civil.Date) string {
	return fmt.Sprintf("%d %s %d", d.Day, monthName(thaiMonthsLong[:], d.Month), d.Year+buddhistEraOffset)
}

// MonthYear renders a month like "มีนาคม 2568".
func MonthYear(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", monthName(thaiMonthsLong[:], month), year+buddhistEraOffset)
}

func monthName(names []string, m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return names[m-1]
}
