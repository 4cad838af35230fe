package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Trade)
		field  string
	}{
		{
			name:   "valid_trade",
			mutate: func(*Trade) {},
		},
		{
			name:   "zero_time",
			mutate: func(tr *Trade) { tr.Time = 0 },
			field:  "time",
		},
		{
			name:   "malformed_price",
			mutate: func(tr *Trade) { tr.Price = "abc" },
			field:  "price",
		},
		{
			name:   "zero_price",
			mutate: func(tr *Trade) { tr.Price = "0" },
			field:  "price",
		},
		{
			name:   "negative_qty",
			mutate: func(tr *Trade) { tr.Qty = "-0.5" },
			field:  "qty",
		},
		{
			name:   "malformed_quote_qty",
			mutate: func(tr *Trade) { tr.QuoteQty = "x" },
			field:  "quote_qty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Trade{
				ID:           812345,
				Price:        "42000.10",
				Qty:          "0.250",
				QuoteQty:     "10500.025",
				Time:         1704103205123,
				IsBuyerMaker: true,
				IsBestMatch:  true,
			}
			tt.mutate(&tr)

			err := tr.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestAggTradeValidate(t *testing.T) {
	agg := AggTrade{
		ID:           990,
		Price:        "42001.00",
		Qty:          "1.5",
		FirstTradeID: 812300,
		LastTradeID:  812310,
		Time:         1704103205123,
	}
	require.NoError(t, agg.Validate())

	agg.LastTradeID = 812299
	var verr *ValidationError
	require.ErrorAs(t, agg.Validate(), &verr)
	assert.Equal(t, "last_trade_id", verr.Field)
}
