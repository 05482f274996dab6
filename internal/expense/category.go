package expense

import (
	"strings"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// CategoryID is the stable identifier of a vocabulary category.
type CategoryID int

const (
	CategoryFertilizer  CategoryID = 1
	CategorySeeds       CategoryID = 2
	CategoryWater       CategoryID = 3
	CategoryLabor       CategoryID = 4
	CategoryEquipment   CategoryID = 5
	CategoryPesticide   CategoryID = 6
	CategoryTransport   CategoryID = 7
	CategoryElectricity CategoryID = 8
	CategoryMaintenance CategoryID = 9
	CategoryOther       CategoryID = 10
)

// Category is one entry of the closed category vocabulary.
type Category struct {
	ID    CategoryID `json:"id"`
	Name  string     `json:"name"`
	Slug  string     `json:"slug"`
	Color string     `json:"color"`
}

// vocabulary is ordered by ID. Never mutated after init.
var vocabulary = []Category{
	{ID: CategoryFertilizer, Name: "ปุ๋ย", Slug: "fertilizer", Color: "#ef4444"},
	{ID: CategorySeeds, Name: "เมล็ดพันธุ์", Slug: "seeds", Color: "#f59e0b"},
	{ID: CategoryWater, Name: "น้ำ", Slug: "water", Color: "#06b6d4"},
	{ID: CategoryLabor, Name: "ค่าแรง", Slug: "labor", Color: "#ec4899"},
	{ID: CategoryEquipment, Name: "อุปกรณ์", Slug: "equipment", Color: "#6366f1"},
	{ID: CategoryPesticide, Name: "ยากำจัดศัตรูพืช", Slug: "pesticide", Color: "#8b5cf6"},
	{ID: CategoryTransport, Name: "ค่าขนส่ง", Slug: "transport", Color: "#14b8a6"},
	{ID: CategoryElectricity, Name: "ค่าไฟฟ้า", Slug: "electricity", Color: "#f97316"},
	{ID: CategoryMaintenance, Name: "ซ่อมบำรุง", Slug: "maintenance", Color: "#a855f7"},
	{ID: CategoryOther, Name: "อื่นๆ", Slug: "other", Color: "#64748b"},
}

// categoryAliases maps alternate labels (lower-cased) an interpreter may
// answer with onto vocabulary IDs.
var categoryAliases = map[string]CategoryID{
	"fertilizer":  CategoryFertilizer,
	"fertiliser":  CategoryFertilizer,
	"seeds":       CategorySeeds,
	"seed":        CategorySeeds,
	"เมล็ด":       CategorySeeds,
	"water":       CategoryWater,
	"labor":       CategoryLabor,
	"labour":      CategoryLabor,
	"wages":       CategoryLabor,
	"แรงงาน":      CategoryLabor,
	"ค่าจ้าง":     CategoryLabor,
	"equipment":   CategoryEquipment,
	"tools":       CategoryEquipment,
	"เครื่องมือ":  CategoryEquipment,
	"pesticide":   CategoryPesticide,
	"ยา":          CategoryPesticide,
	"transport":   CategoryTransport,
	"shipping":    CategoryTransport,
	"ขนส่ง":       CategoryTransport,
	"electricity": CategoryElectricity,
	"ไฟฟ้า":       CategoryElectricity,
	"ค่าไฟ":       CategoryElectricity,
	"maintenance": CategoryMaintenance,
	"repair":      CategoryMaintenance,
	"other":       CategoryOther,
	"อื่น":        CategoryOther,
	"รายจ่ายอื่นๆ": CategoryOther,
}

// Categories returns a copy of the vocabulary in ID order.
func Categories() []Category {
	out := make([]Category, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// CategoryByID returns the vocabulary entry for id, or the "other" entry.
func CategoryByID(id CategoryID) Category {
	for _, c := range vocabulary {
		if c.ID == id {
			return c
		}
	}
	return vocabulary[len(vocabulary)-1]
}

// CategoryNames lists canonical names in vocabulary order, for prompts.
func CategoryNames() []string {
	names := make([]string, len(vocabulary))
	for i, c := range vocabulary {
		names[i] = c.Name
	}
	return names
}

// ResolveCategory maps a free-text category label to a vocabulary ID.
// Anything it cannot place resolves to CategoryOther.
func ResolveCategory(label string) CategoryID {
	norm := normalizeLabel(label)
	if norm == "" {
		return CategoryOther
	}

	for _, c := range vocabulary {
		if norm == normalizeLabel(c.Name) {
			return c.ID
		}
	}
	if id, ok := categoryAliases[norm]; ok {
		return id
	}

	// Candidates must contain a canonical name whole; the fuzzy rank picks
	// the closest of them.
	best := CategoryOther
	bestRank := -1
	for _, c := range vocabulary {
		if c.ID == CategoryOther || utf8.RuneCountInString(c.Name) < 2 {
			continue
		}
		if !strings.Contains(norm, normalizeLabel(c.Name)) {
			continue
		}
		rank := fuzzy.RankMatchFold(c.Name, norm)
		if rank < 0 {
			continue
		}
		if bestRank < 0 || rank < bestRank {
			best = c.ID
			bestRank = rank
		}
	}
	return best
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// keywordEntry is one row of the fallback classification table.
type keywordEntry struct {
	keyword string
	id      CategoryID
}

// categoryKeywords is order-sensitive: the first entry found in the text wins,
// regardless of how specific later entries are.
var categoryKeywords = []keywordEntry{
	{"ปุ๋ย", CategoryFertilizer},
	{"เมล็ด", CategorySeeds},
	{"พันธุ์", CategorySeeds},
	{"น้ำ", CategoryWater},
	{"แรง", CategoryLabor},
	{"จ้าง", CategoryLabor},
	{"อุปกรณ์", CategoryEquipment},
	{"เครื่องมือ", CategoryEquipment},
	{"ยา", CategoryPesticide},
	{"พ่น", CategoryPesticide},
	{"ขนส่ง", CategoryTransport},
	{"ส่ง", CategoryTransport},
	{"ไฟ", CategoryElectricity},
	{"ไฟฟ้า", CategoryElectricity},
	{"ซ่อม", CategoryMaintenance},
	{"บำรุง", CategoryMaintenance},
	{"fertilizer", CategoryFertilizer},
	{"seed", CategorySeeds},
	{"water", CategoryWater},
	{"labor", CategoryLabor},
	{"wage", CategoryLabor},
	{"equipment", CategoryEquipment},
	{"tool", CategoryEquipment},
	{"pesticide", CategoryPesticide},
	{"spray", CategoryPesticide},
	{"transport", CategoryTransport},
	{"shipping", CategoryTransport},
	{"electric", CategoryElectricity},
	{"repair", CategoryMaintenance},
	{"maintenance", CategoryMaintenance},
}

// keywordMatcher scans for every table keyword in one pass.
type keywordMatcher struct {
	matcher *ahocorasick.Matcher
	entries []keywordEntry
}

func newKeywordMatcher(entries []keywordEntry) *keywordMatcher {
	patterns := make([]string, len(entries))
	for i, e := range entries {
		patterns[i] = strings.ToLower(e.keyword)
	}
	return &keywordMatcher{
		matcher: ahocorasick.NewStringMatcher(patterns),
		entries: entries,
	}
}

// classify returns the category of the earliest table entry present in any of
// the texts, or CategoryOther.
func (k *keywordMatcher) classify(texts ...string) CategoryID {
	first := -1
	for _, text := range texts {
		for _, idx := range k.matcher.MatchThreadSafe([]byte(strings.ToLower(text))) {
			if first < 0 || idx < first {
				first = idx
			}
		}
	}

	if first < 0 {
		return CategoryOther
	}
	return k.entries[first].id
}

var defaultKeywords = newKeywordMatcher(categoryKeywords)

// ClassifyText applies the fallback keyword table to the given texts.
func ClassifyText(texts ...string) CategoryID {
	return defaultKeywords.classify(texts...)
}
