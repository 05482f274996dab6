package expense_test

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
)

// MockInterpreter implements expense.Interpreter.
type MockInterpreter struct {
	InterpretFunc func(ctx context.Context, raw string, facts expense.LexicalFacts) (expense.CandidateRecord, error)
	Calls         int
}

func (m *MockInterpreter) Interpret(ctx context.Context, raw string, facts expense.LexicalFacts) (expense.CandidateRecord, error) {
	m.Calls++
	return m.InterpretFunc(ctx, raw, facts)
}

func failingInterpreter(err error) *MockInterpreter {
	return &MockInterpreter{
		InterpretFunc: func(ctx context.Context, raw string, facts expense.LexicalFacts) (expense.CandidateRecord, error) {
			return expense.CandidateRecord{}, err
		},
	}
}

func answeringInterpreter(c expense.CandidateRecord) *MockInterpreter {
	return &MockInterpreter{
		InterpretFunc: func(ctx context.Context, raw string, facts expense.LexicalFacts) (expense.CandidateRecord, error) {
			return c, nil
		},
	}
}

func f(v float64) *float64 { return &v }
func s(v string) *string { return &v }

var (
	bangkok    = expense.LoadLocation("Asia/Bangkok")
	receivedAt = time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
)

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func TestParse_AmountOnly(t *testing.T) {
	p := expense.NewParser(nil, bangkok)

	rec, err := p.Parse(quietContext(), "ปุ๋ย 800", receivedAt)
	require.NoError(t, err)

	assert.Equal(t, expense.CategoryFertilizer, rec.CategoryID)
	assert.Equal(t, "ปุ๋ย", rec.CategoryName)
	assert.Equal(t, 800.0, rec.Amount)
	assert.Nil(t, rec.Quantity)
	assert.Nil(t, rec.Unit)
	assert.Nil(t, rec.UnitPrice)
	assert.Equal(t, expense.InterpretationFallback, rec.Source)
}

func TestParse_QuantityAndUnit(t *testing.T) {
	p := expense.NewParser(nil, bangkok)

	rec, err := p.Parse(quietContext(), "ปุ๋ย 5 ถุง 800", receivedAt)
	require.NoError(t, err)

	assert.Equal(t, 5.0, *rec.Quantity)
	assert.Equal(t, "ถุง", *rec.Unit)
	assert.Equal(t, 800.0, rec.Amount)
	assert.InDelta(t, 160.0, *rec.UnitPrice, 1e-9)
}

func TestParse_FormulaNotMistakenForQuantity(t *testing.T) {
	const raw = "ซื้อปุ๋ย 15-0-0 7กระสอบ 1800"

	interpreters := map[string]expense.Interpreter{
		"fallback only": nil,
		"semantic misreads formula": answeringInterpreter(expense.CandidateRecord{
			Description: "ปุ๋ย",
			Category:    "ปุ๋ย",
			Quantity:    f(15),
			Unit:        s("กระสอบ"),
			Amount:      f(1800),
			UnitPrice:   f(120),
			Note:        s("สูตร 15-0-0"),
		}),
		"semantic drops amount": answeringInterpreter(expense.CandidateRecord{
			Description: "ปุ๋ย",
			Category:    "fertilizer",
			Quantity:    f(7),
			Unit:        s("กระสอบ"),
			Note:        s("สูตร 15-0-0"),
		}),
	}

	for name, interp := range interpreters {
		t.Run(name, func(t *testing.T) {
			rec, err := expense.NewParser(interp, bangkok).Parse(quietContext(), raw, receivedAt)
			require.NoError(t, err)

			require.NotNil(t, rec.Quantity)
			assert.Equal(t, 7.0, *rec.Quantity)
			assert.Equal(t, "กระสอบ", *rec.Unit)
			assert.Equal(t, 1800.0, rec.Amount)
			assert.InDelta(t, 257.14, *rec.UnitPrice, 0.01)
			require.NotNil(t, rec.Note)
			assert.Equal(t, "สูตร 15-0-0", *rec.Note)
			assert.Equal(t, expense.CategoryFertilizer, rec.CategoryID)
		})
	}
}

func TestParse_NoCredentialMatchesFallback(t *testing.T) {
	messages := []string{
		"ปุ๋ย 800",
		"ปุ๋ย 5 ถุง 800",
		"ยา 4 ขวด 200",
		"ค่าแรง 2 คน คนละ 500",
		"ซ่อมปั๊มน้ำ 1200",
		"กาแฟ 45",
	}

	unavailable := expense.NewSemanticInterpreter(nil, expense.SemanticConfig{})
	for _, raw := range messages {
		t.Run(raw, func(t *testing.T) {
			want, err := expense.Fallback(raw)
			require.NoError(t, err)

			rec, err := expense.NewParser(unavailable, bangkok).Parse(quietContext(), raw, receivedAt)
			require.NoError(t, err)

			assert.Equal(t, expense.ResolveCategory(want.Category), rec.CategoryID)
			assert.Equal(t, want.Quantity, rec.Quantity)
			assert.Equal(t, *want.Amount, rec.Amount)
			assert.Equal(t, expense.InterpretationFallback, rec.Source)
		})
	}
}

func TestParse_NoDigitsIsUnparsable(t *testing.T) {
	confident := answeringInterpreter(expense.CandidateRecord{Category: "น้ำ", Amount: f(100)})

	for _, interp := range []expense.Interpreter{nil, confident} {
		rec, err := expense.NewParser(interp, bangkok).Parse(quietContext(), "รดน้ำต้นไม้", receivedAt)
		assert.ErrorIs(t, err, expense.ErrUnparsable)
		assert.Nil(t, rec)
	}
	assert.Equal(t, 0, confident.Calls)
}

func TestParse_SemanticSuccess(t *testing.T) {
	interp := answeringInterpreter(expense.CandidateRecord{
		Description: "ปุ๋ยยูเรีย",
		Category:    "ปุ๋ย",
		Quantity:    f(2),
		Unit:        s("กระสอบ"),
		Amount:      f(1700),
	})

	rec, err := expense.NewParser(interp, bangkok).Parse(quietContext(), "ซื้อปุ๋ยยูเรีย 2 กระสอบ 1700", receivedAt)
	require.NoError(t, err)

	assert.Equal(t, expense.InterpretationSemantic, rec.Source)
	assert.Equal(t, "ปุ๋ยยูเรีย", rec.Description)
	assert.InDelta(t, 850.0, *rec.UnitPrice, 1e-9)
	assert.Equal(t, 1, interp.Calls)
}

func TestParse_SemanticFailureFallsBack(t *testing.T) {
	for name, err := range map[string]error{
		"no json":  expense.ErrNoJSONObject,
		"timeout":  context.DeadlineExceeded,
		"upstream": errors.New("503 from model"),
	} {
		t.Run(name, func(t *testing.T) {
			rec, perr := expense.NewParser(failingInterpreter(err), bangkok).Parse(quietContext(), "ปุ๋ย 5 ถุง 800", receivedAt)
			require.NoError(t, perr)

			assert.Equal(t, expense.InterpretationFallback, rec.Source)
			assert.Equal(t, 800.0, rec.Amount)
			assert.Equal(t, 5.0, *rec.Quantity)
		})
	}
}

func TestParse_NonPositiveSemanticAmountFallsBack(t *testing.T) {
	interp := answeringInterpreter(expense.CandidateRecord{Category: "ยา", Amount: f(-200)})

	rec, err := expense.NewParser(interp, bangkok).Parse(quietContext(), "ยา 4 ขวด 200", receivedAt)
	require.NoError(t, err)

	assert.Equal(t, expense.InterpretationFallback, rec.Source)
	assert.Equal(t, 200.0, rec.Amount)
	assert.Equal(t, expense.CategoryPesticide, rec.CategoryID)
}

func TestParse_UnknownCategoryIsOther(t *testing.T) {
	interp := answeringInterpreter(expense.CandidateRecord{Category: "snacks", Amount: f(60)})

	rec, err := expense.NewParser(interp, bangkok).Parse(quietContext(), "ขนม 60", receivedAt)
	require.NoError(t, err)

	assert.Equal(t, expense.CategoryOther, rec.CategoryID)
	assert.Equal(t, "อื่นๆ", rec.CategoryName)
	assert.Equal(t, "รายจ่าย", rec.Description)
}

func TestParse_AmountAlwaysPositiveWhenDigitsPresent(t *testing.T) {
	messages := []string{
		"ปุ๋ย 800",
		"350",
		"ซื้อปุ๋ยสูตร 25-7-7 กระสอบละ 1200 7กระสอบ",
		"ปุ๋ย 5 ถุง ถุงละ 160 ถุงละ 10 โล",
		"ยา 4 ขวด 200 ขวดละ 500ml",
		"ค่าไฟ 1,250",
		"ค่าส่ง 3/120",
	}

	p := expense.NewParser(nil, bangkok)
	for _, raw := range messages {
		rec, err := p.Parse(quietContext(), raw, receivedAt)
		require.NoError(t, err, raw)
		assert.Greater(t, rec.Amount, 0.0, raw)
		if rec.Quantity != nil && *rec.Quantity != 0 {
			require.NotNil(t, rec.UnitPrice, raw)
			assert.InDelta(t, rec.Amount / *rec.Quantity, *rec.UnitPrice, 1e-9, raw)
		}
	}
}

func TestParse_ZeroAmountIsUnparsable(t *testing.T) {
	_, err := expense.NewParser(nil, bangkok).Parse(quietContext(), "ปุ๋ย 0", receivedAt)
	assert.ErrorIs(t, err, expense.ErrUnparsable)
}

func TestParse_SubSatangAmountIsUnparsable(t *testing.T) {
	_, err := expense.NewParser(nil, bangkok).Parse(quietContext(), "ปุ๋ย 0.004", receivedAt)
	assert.ErrorIs(t, err, expense.ErrUnparsable)

	rec, err := expense.NewParser(nil, bangkok).Parse(quietContext(), "ปุ๋ย 0.5", receivedAt)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rec.Amount)
}

func TestParse_FormulaPerUnitWithoutInterpreter(t *testing.T) {
	rec, err := expense.NewParser(nil, bangkok).Parse(quietContext(), "ซื้อปุ๋ยสูตร 25-7-7 กระสอบละ 1200 7กระสอบ", receivedAt)
	require.NoError(t, err)

	// The positional fallback reads the formula lead as the unit price.
	assert.Equal(t, 175.0, rec.Amount)
	require.NotNil(t, rec.Quantity)
	assert.Equal(t, 7.0, *rec.Quantity)
	require.NotNil(t, rec.UnitPrice)
	assert.Equal(t, 25.0, *rec.UnitPrice)
}

func TestParse_DateInLocation(t *testing.T) {
	late := time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC)

	rec, err := expense.NewParser(nil, bangkok).Parse(quietContext(), "ปุ๋ย 800", late)
	require.NoError(t, err)

	assert.Equal(t, "2025-02-01", rec.DateString())
	assert.Equal(t, 0, rec.Date.Hour())
}

func TestParse_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(quietContext())
	cancel()

	_, err := expense.NewParser(nil, bangkok).Parse(ctx, "ปุ๋ย 800", receivedAt)
	assert.ErrorIs(t, err, context.Canceled)
}
