package expense

import (
	"strconv"
	"strings"
)

// buildInterpretPrompt renders the instruction prompt for one message with the
// pre-extracted facts embedded verbatim.
func buildInterpretPrompt(raw string, facts LexicalFacts) string {
	var b strings.Builder

	b.WriteString("แปลงข้อความเป็น JSON สำหรับระบบบัญชีรายจ่ายสวน\n\n")
	b.WriteString("ข้อความต้นฉบับ: \"" + raw + "\"\n\n")

	b.WriteString("ข้อมูลที่ตรวจพบแล้ว:\n")
	if facts.Formula != "" {
		b.WriteString("- สูตรปุ๋ย: " + facts.Formula + "\n")
	} else {
		b.WriteString("- ไม่มีสูตรปุ๋ย\n")
	}
	if facts.HasQuantity() {
		b.WriteString("- quantity: " + formatNumber(*facts.Quantity) + " " + facts.Unit + "\n")
	} else {
		b.WriteString("- ไม่ระบุ quantity\n")
	}
	b.WriteString("- ตัวเลขทั้งหมด: " + joinNumbers(facts.Numbers) + "\n\n")

	b.WriteString("กฎการวิเคราะห์:\n")
	b.WriteString("1. description: ชื่อสินค้า/รายการ (เช่น ปุ๋ย, ยา, ค่าแรง)\n")
	b.WriteString("2. category: " + strings.Join(CategoryNames(), "|") + "\n")
	if facts.HasQuantity() {
		b.WriteString("3. quantity: " + formatNumber(*facts.Quantity) + "\n")
		b.WriteString("4. unit: " + strconv.Quote(facts.Unit) + "\n")
	} else {
		b.WriteString("3. quantity: null\n")
		b.WriteString("4. unit: null\n")
	}
	b.WriteString("5. amount: ตัวเลขที่ใหญ่ที่สุดในรายการ (มักเป็นราคารวม)\n")
	b.WriteString("6. unit_price: คำนวณจาก amount / quantity\n")
	if facts.Formula != "" {
		b.WriteString("7. note: " + strconv.Quote(FormulaNotePrefix+" "+facts.Formula) + "\n\n")
	} else {
		b.WriteString("7. note: null หรือข้อมูลเพิ่มเติม\n\n")
	}

	b.WriteString("ตัวอย่าง:\n")
	b.WriteString("ข้อความ: \"ซื้อปุ๋ย 15-0-0 7กระสอบ 1800\"\n")
	b.WriteString(`→ {"description":"ปุ๋ย","category":"ปุ๋ย","quantity":7,"unit":"กระสอบ","amount":1800,"unit_price":257.14,"note":"สูตร 15-0-0"}`)
	b.WriteString("\n\n")

	b.WriteString("ตอบเฉพาะ JSON object ห้ามใส่ ``` หรือข้อความอื่น:")
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinNumbers(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatNumber(v)
	}
	return strings.Join(parts, ", ")
}
