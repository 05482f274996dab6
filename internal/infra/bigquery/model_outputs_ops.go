package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// InsertModelOutputWithClient inserts a single ModelOutputRow into the
// model_outputs table. Uses DML INSERT to avoid streaming buffer issues.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ModelOutputRow) error {
	q := client.Query(`
		INSERT INTO ` + ds.table(modelOutputsTable) + ` (
			output_id, model_name, message,
			prompt, response, error_message, created_ts
		)
		VALUES (
			@output_id, @model_name, @message,
			@prompt, @response, @error_message, @created_ts
		)
	`)

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "message", Value: row.Message},
		{Name: "prompt", Value: row.Prompt},
		{Name: "response", Value: row.Response},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertModelOutput: job error: %w", err)
	}

	return nil
}
