package expense

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	purchaseVerbRe = regexp.MustCompile(`^` + PurchaseVerb + `\s*`)
	formulaRe      = regexp.MustCompile(`\d+-\d+-\d+`)
	numberRe       = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// quantityUnitRe matches "<integer><unit>" against the closed unit list.
	// Thai words come first so "7กระสอบ" is never read as an English unit.
	quantityUnitRe = regexp.MustCompile(
		`(\d+)\s*(กระสอบ|ถุง|ขวด|ลิตร|กิโลกรัม|โล|คน|กระป๋อง|แกลลอน|` +
			`(?i:sacks?|bags?|bottles?|litres?|liters?|kg|kilograms?|persons?|people|cans?|gallons?))`,
	)
)

// stripPurchaseVerb removes a leading "ซื้อ" and surrounding whitespace.
func stripPurchaseVerb(raw string) string {
	s := strings.TrimSpace(raw)
	s = purchaseVerbRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Extract scans a raw message for the formula code, the quantity+unit pair
// and every numeric literal. The formula is removed before the other two scans
// so its digits never reach quantity or amount detection.
func Extract(raw string) LexicalFacts {
	facts := LexicalFacts{
		Cleaned: stripPurchaseVerb(raw),
	}

	working := facts.Cleaned
	if formula := formulaRe.FindString(working); formula != "" {
		facts.Formula = formula
		working = strings.TrimSpace(strings.Replace(working, formula, "", 1))
	}
	facts.TextSansFormula = working

	if m := quantityUnitRe.FindStringSubmatch(working); m != nil {
		if q, err := strconv.ParseFloat(m[1], 64); err == nil {
			facts.Quantity = &q
			facts.Unit = m[2]
		}
	}

	facts.Numbers = parseNumbers(numberRe.FindAllString(working, -1))
	return facts
}

// formulaLead returns the first integer of a formula code such as "15-0-0".
func formulaLead(formula string) (float64, bool) {
	head, _, ok := strings.Cut(formula, "-")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(head, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseNumbers(tokens []string) []float64 {
	out := make([]float64, 0, len(tokens))
	for _, t := range tokens {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

