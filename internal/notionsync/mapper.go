package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/garden-ledger/internal/store"
)

// Property names of the Notion expenses database.
const (
	PropDescription = "Description"
	PropExpenseID   = "Expense ID"
	PropDate        = "Date"
	PropAmount      = "Amount"
	PropCategory    = "Category"
	PropQuantity    = "Quantity"
	PropUnit        = "Unit"
	PropUnitPrice   = "Unit Price"
	PropNote        = "Note"
	PropUser        = "User"
	PropSource      = "Source"
	PropMessage     = "Message"
)

// ExpenseToNotionProperties converts a stored expense to Notion properties.
func ExpenseToNotionProperties(e *store.Expense) notionapi.Properties {
	amount, _ := e.Amount.Float64()

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: e.Description,
					},
				},
			},
		},
		PropExpenseID: richText(e.ID),
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(e.Date.Year, e.Date.Month, e.Date.Day, 0, 0, 0, 0, time.UTC))
					return &d
				}(),
			},
		},
		PropAmount: notionapi.NumberProperty{Number: amount},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: e.CategoryName},
		},
		PropSource: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(e.Source)},
		},
	}

	if e.Quantity.Valid {
		q, _ := e.Quantity.Decimal.Float64()
		props[PropQuantity] = notionapi.NumberProperty{Number: q}
	}

	if e.Unit != nil && *e.Unit != "" {
		props[PropUnit] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: *e.Unit},
		}
	}

	if e.UnitPrice.Valid {
		p, _ := e.UnitPrice.Decimal.Float64()
		props[PropUnitPrice] = notionapi.NumberProperty{Number: p}
	}

	if e.Note != nil && *e.Note != "" {
		props[PropNote] = richText(*e.Note)
	}

	if e.UserName != "" {
		props[PropUser] = richText(e.UserName)
	}

	if e.RawMessage != "" {
		props[PropMessage] = richText(e.RawMessage)
	}

	return props
}

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: content,
				},
			},
		},
	}
}

// extractExpenseID extracts the expense ID from a Notion page's properties.
// Returns empty string if not found.
func extractExpenseID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropExpenseID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
