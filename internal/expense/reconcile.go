package expense

// Reconcile corrects a candidate against the lexical facts of the same message.
// It returns a new record and leaves the input untouched.
func Reconcile(facts LexicalFacts, c CandidateRecord) CandidateRecord {
	out, _ := reconcile(facts, c)
	return out
}

// reconcile is Reconcile plus a short description of every correction made,
// for logging.
func reconcile(facts LexicalFacts, c CandidateRecord) (CandidateRecord, []string) {
	var fixes []string

	// A quantity equal to the formula's leading number is the formula misread.
	if facts.Formula != "" && facts.HasQuantity() && c.Quantity != nil {
		if lead, ok := formulaLead(facts.Formula); ok && *c.Quantity == lead {
			c.Quantity = floatPtr(*facts.Quantity)
			c.Unit = strPtr(facts.Unit)
			fixes = append(fixes, "quantity_from_formula")
		}
	}

	if (c.Amount == nil || *c.Amount == 0) && len(facts.Numbers) > 0 {
		c.Amount = floatPtr(maxFloat(facts.Numbers))
		fixes = append(fixes, "amount_from_largest_number")
	}

	if c.Quantity != nil && c.Amount != nil && *c.Quantity != 0 {
		c.UnitPrice = floatPtr(*c.Amount / *c.Quantity)
	}

	return c, fixes
}

func maxFloat(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
