package expense

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparsable is returned when a message carries no numeric literal at all.
var ErrUnparsable = errors.New("expense: message has no amount")

var (
	fallbackNumberRe = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)
	leadingTextRe    = regexp.MustCompile(`^([^\d]+)`)
	looseUnitRe      = regexp.MustCompile(`\d+\s*([ก-๙a-zA-Z]+)`)
	sizeNoteRe       = regexp.MustCompile(`(?i)ละ\s*(\d+(?:\.\d+)?)\s*(โล|กิโลกรัม|ml|ลิตร|แกลลอน)`)
)

// perUnitMarkers signal that the second number is a price per unit.
var perUnitMarkers = []string{"ละ", "บาท/", "/"}

// Fallback interprets a message with positional number rules and the keyword
// table. It never calls out and fails only with ErrUnparsable.
func Fallback(raw string) (CandidateRecord, error) {
	cleaned := stripPurchaseVerb(raw)

	numbers := parseNumbers(fallbackNumberRe.FindAllString(cleaned, -1))
	if len(numbers) == 0 {
		return CandidateRecord{}, ErrUnparsable
	}

	c := CandidateRecord{Description: DefaultDescription}
	if m := leadingTextRe.FindStringSubmatch(cleaned); m != nil {
		if d := strings.TrimSpace(m[1]); d != "" {
			c.Description = d
		}
	}

	if m := looseUnitRe.FindStringSubmatch(cleaned); m != nil {
		c.Unit = strPtr(m[1])
	}

	if formula := formulaRe.FindString(cleaned); formula != "" {
		c.Note = strPtr(FormulaNotePrefix + " " + formula)
	} else if m := sizeNoteRe.FindStringSubmatch(cleaned); m != nil {
		unit := DefaultUnitLabel
		if c.Unit != nil {
			unit = *c.Unit
		}
		c.Note = strPtr(fmt.Sprintf("%sละ %s %s", unit, m[1], m[2]))
	}

	switch {
	case hasPerUnitMarker(cleaned) && len(numbers) >= 2:
		qty, price := numbers[0], numbers[1]
		c.Quantity = floatPtr(qty)
		c.UnitPrice = floatPtr(price)
		c.Amount = floatPtr(qty * price)
	case hasPerUnitMarker(cleaned):
		c.Amount = floatPtr(numbers[0])
	case len(numbers) >= 2:
		qty, amount := numbers[0], numbers[1]
		c.Quantity = floatPtr(qty)
		c.Amount = floatPtr(amount)
		if qty > 0 {
			c.UnitPrice = floatPtr(amount / qty)
		}
	default:
		c.Amount = floatPtr(numbers[0])
	}

	c.Category = CategoryByID(ClassifyText(c.Description, cleaned)).Name
	return c, nil
}

func hasPerUnitMarker(s string) bool {
	for _, m := range perUnitMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
