package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/garden-ledger/internal/store"
)

// Repository keeps expenses in process memory.
type Repository struct {
	mu       sync.RWMutex
	expenses []*store.Expense
	now      func() time.Time
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{now: time.Now}
}

// SaveExpense implements store.Repository.
func (r *Repository) SaveExpense(ctx context.Context, e store.NewExpense) (*store.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved := store.Materialize(uuid.New().String(), e, r.now().UTC())

	r.mu.Lock()
	r.expenses = append(r.expenses, saved)
	r.mu.Unlock()

	out := *saved
	return &out, nil
}

// ListExpenses implements store.Repository. Newest dates come first.
func (r *Repository) ListExpenses(ctx context.Context, f store.Filter) ([]*store.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := r.matching(f)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Summary implements store.Repository.
func (r *Repository) Summary(ctx context.Context, q store.SummaryQuery) (*store.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return store.Summarize(q, r.matching(store.Filter{From: q.From, To: q.To, UserID: q.UserID})), nil
}

// Close implements store.Repository.
func (r *Repository) Close() error {
	return nil
}

func (r *Repository) matching(f store.Filter) []*store.Expense {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*store.Expense, 0, len(r.expenses))
	for _, e := range r.expenses {
		if f.Matches(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}
