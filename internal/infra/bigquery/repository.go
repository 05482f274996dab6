package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/store"
)

// ExpenseRepository is the BigQuery implementation of store.Repository. It
// also archives model exchanges into the model_outputs table. It holds a
// shared BigQuery client to avoid creating a new connection per operation.
type ExpenseRepository struct {
	client *bigquery.Client
	ds     Dataset
	now    func() time.Time
}

var (
	_ store.Repository        = (*ExpenseRepository)(nil)
	_ expense.ModelOutputSink = (*ExpenseRepository)(nil)
)

// NewExpenseRepository creates a repository writing to projectID.datasetID.
func NewExpenseRepository(ctx context.Context, projectID, datasetID string) (*ExpenseRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExpenseRepository: creating client: %w", err)
	}
	return &ExpenseRepository{
		client: client,
		ds:     Dataset{ProjectID: projectID, DatasetID: datasetID},
		now:    time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *ExpenseRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SaveExpense streams the expense and returns it as stored. Streamed rows are
// not immediately queryable, so the result is built locally.
func (r *ExpenseRepository) SaveExpense(ctx context.Context, e store.NewExpense) (*store.Expense, error) {
	saved := store.Materialize(uuid.NewString(), e, r.now().UTC())
	if err := InsertExpenseWithClient(ctx, r.client, r.ds, NewExpenseRow(saved)); err != nil {
		return nil, err
	}
	return saved, nil
}

// ListExpenses delegates to QueryExpensesWithClient with the shared client.
func (r *ExpenseRepository) ListExpenses(ctx context.Context, f store.Filter) ([]*store.Expense, error) {
	return QueryExpensesWithClient(ctx, r.client, r.ds, f)
}

// Summary delegates to SummaryWithClient with the shared client.
func (r *ExpenseRepository) Summary(ctx context.Context, q store.SummaryQuery) (*store.Summary, error) {
	return SummaryWithClient(ctx, r.client, r.ds, q)
}

// SaveModelOutput delegates to InsertModelOutputWithClient with the shared client.
func (r *ExpenseRepository) SaveModelOutput(ctx context.Context, out *expense.ModelOutput) error {
	return InsertModelOutputWithClient(ctx, r.client, r.ds, NewModelOutputRow(out))
}

// Migrate applies pending schema migrations to the repository's dataset.
func (r *ExpenseRepository) Migrate(ctx context.Context, appliedBy string) (int, error) {
	return MigrateWithClient(ctx, r.client, r.ds, appliedBy)
}
