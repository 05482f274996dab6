package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/garden-ledger/internal/logger"
	"github.com/dvloznov/garden-ledger/internal/store"
)

// Mirror copies saved expenses into a Notion database, one page per expense.
type Mirror struct {
	client     PageService
	databaseID string
}

// NewMirror creates a mirror writing to databaseID.
func NewMirror(client PageService, databaseID string) *Mirror {
	return &Mirror{client: client, databaseID: databaseID}
}

// MirrorExpense creates the Notion page for a single expense.
func (m *Mirror) MirrorExpense(ctx context.Context, e *store.Expense) error {
	page, err := m.client.CreatePage(ctx, m.databaseID, ExpenseToNotionProperties(e))
	if err != nil {
		return fmt.Errorf("MirrorExpense: %s: %w", e.ID, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("expense_id", e.ID).
		Str("page_id", string(page.ID)).
		Msg("Mirrored expense to Notion")
	return nil
}

// SyncResult counts what a backfill did.
type SyncResult struct {
	Created int
	Skipped int
	Failed  int
}

// SyncExpenses backfills expenses matching f that have no Notion page yet.
// Pages are matched by their Expense ID property. Individual page failures are
// logged and counted; only listing errors abort the sync.
func (m *Mirror) SyncExpenses(ctx context.Context, repo store.Repository, f store.Filter, dryRun bool) (*SyncResult, error) {
	log := logger.FromContext(ctx)

	expenses, err := repo.ListExpenses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("SyncExpenses: list expenses: %w", err)
	}
	log.Info().Int("expense_count", len(expenses)).Bool("dry_run", dryRun).Msg("Starting expense sync to Notion")

	pages, err := queryAllNotionPages(ctx, m.client, m.databaseID)
	if err != nil {
		return nil, fmt.Errorf("SyncExpenses: %w", err)
	}

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := extractExpenseID(page); id != "" {
			existing[id] = true
		}
	}

	res := &SyncResult{}
	for _, e := range expenses {
		if existing[e.ID] {
			res.Skipped++
			continue
		}

		if dryRun {
			log.Info().Str("expense_id", e.ID).Msg("[DRY RUN] Would create Notion page")
			res.Created++
			continue
		}

		if err := m.MirrorExpense(ctx, e); err != nil {
			log.Warn().Err(err).Str("expense_id", e.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Expense sync completed")
	return res, nil
}

// queryAllNotionPages queries all pages from a Notion database.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, client PageService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
