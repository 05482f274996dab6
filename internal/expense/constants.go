package expense

// Default values for message parsing.
const (
	// DefaultModelName is the default Gemini model used for the semantic pass.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultDescription is used when no item name can be extracted.
	DefaultDescription = "รายจ่าย"

	// DefaultUnitLabel stands in for a missing unit in size notes ("หน่วยละ 10 โล").
	DefaultUnitLabel = "หน่วย"

	// PurchaseVerb is stripped from the start of every message.
	PurchaseVerb = "ซื้อ"

	// FormulaNotePrefix prefixes the note synthesized from a fertilizer formula.
	FormulaNotePrefix = "สูตร"

	// DateLayout is the layout of transaction dates.
	DateLayout = "2006-01-02"

	// DefaultLocation is the time zone transaction dates are stamped in.
	DefaultLocation = "Asia/Bangkok"
)
