package ledger

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/logger"
	"github.com/dvloznov/garden-ledger/internal/reply"
	"github.com/dvloznov/garden-ledger/internal/store"
	"github.com/dvloznov/garden-ledger/internal/store/memory"
)

// MockMirror implements Mirror.
type MockMirror struct {
	MirrorExpenseFunc func(ctx context.Context, e *store.Expense) error
	Mirrored          []*store.Expense
}

func (m *MockMirror) MirrorExpense(ctx context.Context, e *store.Expense) error {
	m.Mirrored = append(m.Mirrored, e)
	if m.MirrorExpenseFunc != nil {
		return m.MirrorExpenseFunc(ctx, e)
	}
	return nil
}

// failingRepository implements store.Repository and fails every call.
type failingRepository struct{ err error }

func (r failingRepository) SaveExpense(ctx context.Context, e store.NewExpense) (*store.Expense, error) {
	return nil, r.err
}

func (r failingRepository) ListExpenses(ctx context.Context, f store.Filter) ([]*store.Expense, error) {
	return nil, r.err
}

func (r failingRepository) Summary(ctx context.Context, q store.SummaryQuery) (*store.Summary, error) {
	return nil, r.err
}

func (r failingRepository) Close() error { return nil }

var (
	bangkok = expense.LoadLocation("Asia/Bangkok")
	sentAt  = time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
)

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func newService(repo store.Repository, mirror Mirror) *Service {
	return NewService(expense.NewParser(nil, bangkok), repo, mirror, bangkok)
}

func TestHandleText_RecordsExpense(t *testing.T) {
	repo := memory.NewRepository()
	mirror := &MockMirror{}
	svc := newService(repo, mirror)

	text, err := svc.HandleText(quietContext(), Message{UserID: "U1", Text: "  ปุ๋ย 5 ถุง 800 ", ReceivedAt: sentAt})
	require.NoError(t, err)

	assert.Contains(t, text, "✅ บันทึกแล้ว!")
	assert.Contains(t, text, "💰 ปุ๋ย: 800.00 บาท")
	assert.Contains(t, text, "💵 160.00 บาท/ถุง")

	saved, err := repo.ListExpenses(context.Background(), store.Filter{UserID: "U1"})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, DefaultUserName, saved[0].UserName)
	assert.Equal(t, "ปุ๋ย 5 ถุง 800", saved[0].RawMessage)
	assert.Equal(t, "2025-03-10", saved[0].Date.String())

	require.Len(t, mirror.Mirrored, 1)
	assert.Equal(t, saved[0].ID, mirror.Mirrored[0].ID)
}

func TestHandleText_MirrorFailureIsNotFatal(t *testing.T) {
	mirror := &MockMirror{MirrorExpenseFunc: func(ctx context.Context, e *store.Expense) error {
		return errors.New("notion down")
	}}

	text, err := newService(memory.NewRepository(), mirror).HandleText(quietContext(), Message{UserID: "U1", Text: "ยา 200"})
	require.NoError(t, err)
	assert.Contains(t, text, "✅ บันทึกแล้ว!")
}

func TestHandleText_Unparsable(t *testing.T) {
	repo := memory.NewRepository()

	text, err := newService(repo, nil).HandleText(quietContext(), Message{UserID: "U1", Text: "สวัสดีครับ"})
	require.NoError(t, err)
	assert.Equal(t, reply.Unparsable, text)

	saved, err := repo.ListExpenses(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestHandleText_StorageError(t *testing.T) {
	boom := errors.New("disk full")

	text, err := newService(failingRepository{err: boom}, nil).HandleText(quietContext(), Message{UserID: "U1", Text: "ปุ๋ย 800"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, reply.GenericError, text)
}

func TestHandleText_Help(t *testing.T) {
	svc := newService(memory.NewRepository(), nil)

	for _, cmd := range []string{"help", "HELP", "ช่วย", "ช่วยเหลือ", "วิธีใช้"} {
		text, err := svc.HandleText(quietContext(), Message{UserID: "U1", Text: cmd})
		require.NoError(t, err)
		assert.Equal(t, reply.Help(), text, cmd)
	}
}

func TestHandleText_Summary(t *testing.T) {
	ctx := quietContext()
	svc := newService(memory.NewRepository(), nil)

	text, err := svc.HandleText(ctx, Message{UserID: "U1", Text: "สรุป", ReceivedAt: sentAt})
	require.NoError(t, err)
	assert.Equal(t, reply.NoExpensesToday, text)

	for _, raw := range []string{"ปุ๋ย 800", "ยา 200", "ปุ๋ย 5 ถุง 1000"} {
		_, err := svc.HandleText(ctx, Message{UserID: "U1", Text: raw, ReceivedAt: sentAt})
		require.NoError(t, err)
	}
	_, err = svc.HandleText(ctx, Message{UserID: "U2", Text: "ค่าแรง 500", ReceivedAt: sentAt})
	require.NoError(t, err)

	text, err = svc.HandleText(ctx, Message{UserID: "U1", Text: "Summary", ReceivedAt: sentAt})
	require.NoError(t, err)
	assert.Contains(t, text, "💸 ยอดรวม: 2,000.00 บาท")
	assert.Contains(t, text, "📝 จำนวน: 3 รายการ")
	assert.Contains(t, text, "• ปุ๋ย: 1,800.00 บาท (2 รายการ)")
	assert.NotContains(t, text, "ค่าแรง")
}

func TestHandleText_SummaryStorageError(t *testing.T) {
	text, err := newService(failingRepository{err: errors.New("timeout")}, nil).HandleText(quietContext(), Message{UserID: "U1", Text: "สรุปวันนี้"})
	assert.Error(t, err)
	assert.Equal(t, reply.GenericError, text)
}

func TestRecord_KeepsDisplayName(t *testing.T) {
	saved, err := newService(memory.NewRepository(), nil).Record(quietContext(), Message{UserID: "U1", UserName: "สมชาย", Text: "ค่าไฟ 450", ReceivedAt: sentAt})
	require.NoError(t, err)

	assert.Equal(t, "สมชาย", saved.UserName)
	assert.Equal(t, expense.CategoryElectricity, saved.CategoryID)
	assert.Equal(t, "450", saved.Amount.String())
}
