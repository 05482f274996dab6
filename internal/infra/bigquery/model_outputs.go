package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/garden-ledger/internal/expense"
)

type ModelOutputRow struct {
	OutputID  string `bigquery:"output_id"`  // REQUIRED
	ModelName string `bigquery:"model_name"` // REQUIRED

	Message  string `bigquery:"message"`  // REQUIRED
	Prompt   string `bigquery:"prompt"`   // REQUIRED
	Response string `bigquery:"response"` // REQUIRED, may be empty on error

	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewModelOutputRow converts an archived model exchange into its row.
func NewModelOutputRow(out *expense.ModelOutput) *ModelOutputRow {
	row := &ModelOutputRow{
		OutputID:  out.ID,
		ModelName: out.Model,
		Message:   out.Message,
		Prompt:    out.Prompt,
		Response:  out.Response,
		CreatedTS: out.CreatedAt,
	}
	if out.Error != "" {
		row.ErrorMessage = bigquery.NullString{StringVal: out.Error, Valid: true}
	}
	return row
}
