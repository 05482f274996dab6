package expense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantDesc      string
		wantCategory  string
		wantQty       *float64
		wantUnit      *string
		wantAmount    float64
		wantUnitPrice *float64
		wantNote      *string
	}{
		{
			name:         "amount only",
			raw:          "ปุ๋ย 800",
			wantDesc:     "ปุ๋ย",
			wantCategory: "ปุ๋ย",
			wantAmount:   800,
		},
		{
			name:          "quantity then amount",
			raw:           "ปุ๋ย 5 ถุง 800",
			wantDesc:      "ปุ๋ย",
			wantCategory:  "ปุ๋ย",
			wantQty:       floatPtr(5),
			wantUnit:      strPtr("ถุง"),
			wantAmount:    800,
			wantUnitPrice: floatPtr(160),
		},
		{
			name:          "per unit price",
			raw:           "ปุ๋ย 5 ถุง ถุงละ 160",
			wantDesc:      "ปุ๋ย",
			wantCategory:  "ปุ๋ย",
			wantQty:       floatPtr(5),
			wantUnit:      strPtr("ถุง"),
			wantAmount:    800,
			wantUnitPrice: floatPtr(160),
		},
		{
			name:          "per unit price with size note",
			raw:           "ปุ๋ย 5 ถุง ถุงละ 160 ถุงละ 10 โล",
			wantDesc:      "ปุ๋ย",
			wantCategory:  "ปุ๋ย",
			wantQty:       floatPtr(5),
			wantUnit:      strPtr("ถุง"),
			wantAmount:    800,
			wantUnitPrice: floatPtr(160),
			wantNote:      strPtr("ถุงละ 10 โล"),
		},
		{
			name:          "labor per person",
			raw:           "ค่าแรง 2 คน คนละ 500",
			wantDesc:      "ค่าแรง",
			wantCategory:  "ค่าแรง",
			wantQty:       floatPtr(2),
			wantUnit:      strPtr("คน"),
			wantAmount:    1000,
			wantUnitPrice: floatPtr(500),
		},
		{
			name:          "slash marker",
			raw:           "ยา 3 ขวด 120 บาท/ขวด",
			wantDesc:      "ยา",
			wantCategory:  "ยากำจัดศัตรูพืช",
			wantQty:       floatPtr(3),
			wantUnit:      strPtr("ขวด"),
			wantAmount:    360,
			wantUnitPrice: floatPtr(120),
		},
		{
			name:         "marker with a single number is the total",
			raw:          "ค่าส่ง ละ 250",
			wantDesc:     "ค่าส่ง ละ",
			wantCategory: "ค่าขนส่ง",
			wantAmount:   250,
		},
		{
			name:          "formula digits are read positionally",
			raw:           "ซื้อปุ๋ย 15-0-0 7กระสอบ 1800",
			wantDesc:      "ปุ๋ย",
			wantCategory:  "ปุ๋ย",
			wantQty:       floatPtr(15),
			wantUnit:      strPtr("กระสอบ"),
			wantAmount:    0,
			wantUnitPrice: floatPtr(0),
			wantNote:      strPtr("สูตร 15-0-0"),
		},
		{
			name:         "no description",
			raw:          "350",
			wantDesc:     "รายจ่าย",
			wantCategory: "อื่นๆ",
			wantAmount:   350,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Fallback(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDesc, c.Description)
			assert.Equal(t, tt.wantCategory, c.Category)
			require.NotNil(t, c.Amount)
			assert.InDelta(t, tt.wantAmount, *c.Amount, 1e-9)
			assert.Equal(t, tt.wantQty, c.Quantity)
			assert.Equal(t, tt.wantUnit, c.Unit)
			assert.Equal(t, tt.wantNote, c.Note)
			if tt.wantUnitPrice == nil {
				assert.Nil(t, c.UnitPrice)
			} else {
				require.NotNil(t, c.UnitPrice)
				assert.InDelta(t, *tt.wantUnitPrice, *c.UnitPrice, 1e-9)
			}
		})
	}
}

func TestFallback_NoDigitsIsUnparsable(t *testing.T) {
	for _, raw := range []string{"รดน้ำต้นไม้", "ซื้อ", "", "help"} {
		_, err := Fallback(raw)
		assert.ErrorIs(t, err, ErrUnparsable, raw)
	}
}
