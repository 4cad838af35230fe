package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSymbol   = "BTCUSDT"
	testInterval = "1h"
)

func validKline() Kline {
	return Kline{
		OpenTime:            1704103200000,
		Open:                "42000.50",
		High:                "42150.00",
		Low:                 "41900.25",
		Close:               "42100.00",
		Volume:              "153.40",
		CloseTime:           1704106799999,
		QuoteAssetVolume:    "6450000.12",
		TradeCount:          18234,
		TakerBuyBaseVolume:  "80.10",
		TakerBuyQuoteVolume: "3370000.55",
		Symbol:              testSymbol,
		Interval:            testInterval,
	}
}

func TestKlineValidate_ValidData(t *testing.T) {
	tests := []struct {
		name  string
		open  string
		high  string
		low   string
		close string
	}{
		{
			name:  "bullish_kline",
			open:  "100.00",
			high:  "105.50",
			low:   "99.25",
			close: "104.00",
		},
		{
			name:  "bearish_kline",
			open:  "100.00",
			high:  "102.00",
			low:   "95.50",
			close: "96.75",
		},
		{
			name:  "doji_kline",
			open:  "100.00",
			high:  "101.00",
			low:   "99.00",
			close: "100.00",
		},
		{
			name:  "high_precision",
			open:  "100.123456789",
			high:  "100.987654321",
			low:   "99.111111111",
			close: "100.555555555",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := validKline()
			k.Open = tt.open
			k.High = tt.high
			k.Low = tt.low
			k.Close = tt.close

			assert.NoError(t, k.Validate())
		})
	}
}

func TestKlineValidate_InvalidData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Kline)
		field  string
	}{
		{
			name:   "zero_open_time",
			mutate: func(k *Kline) { k.OpenTime = 0 },
			field:  "open_time",
		},
		{
			name:   "close_before_open",
			mutate: func(k *Kline) { k.CloseTime = k.OpenTime - 1 },
			field:  "close_time",
		},
		{
			name:   "malformed_open",
			mutate: func(k *Kline) { k.Open = "not-a-number" },
			field:  "open",
		},
		{
			name:   "negative_close",
			mutate: func(k *Kline) { k.Close = "-1" },
			field:  "close",
		},
		{
			name:   "high_below_close",
			mutate: func(k *Kline) { k.High = "42050.00" },
			field:  "high",
		},
		{
			name:   "low_above_open",
			mutate: func(k *Kline) { k.Low = "42050.00" },
			field:  "low",
		},
		{
			name:   "negative_volume",
			mutate: func(k *Kline) { k.Volume = "-5" },
			field:  "volume",
		},
		{
			name:   "missing_symbol",
			mutate: func(k *Kline) { k.Symbol = "" },
			field:  "symbol",
		},
		{
			name:   "missing_interval",
			mutate: func(k *Kline) { k.Interval = "" },
			field:  "interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := validKline()
			tt.mutate(&k)

			err := k.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestKlineDecimalAccessors(t *testing.T) {
	k := validKline()

	open, err := k.OpenDecimal()
	require.NoError(t, err)
	assert.True(t, open.Equal(decimal.RequireFromString("42000.50")))

	quote, err := k.QuoteAssetVolumeDecimal()
	require.NoError(t, err)
	assert.True(t, quote.Equal(decimal.RequireFromString("6450000.12")))

	takerBase, err := k.TakerBuyBaseVolumeDecimal()
	require.NoError(t, err)
	assert.True(t, takerBase.Equal(decimal.RequireFromString("80.10")))
}

func TestKlineTimestamps(t *testing.T) {
	k := validKline()

	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), k.OpenTimestamp())
	assert.Equal(t, time.UTC, k.CloseTimestamp().Location())
	assert.True(t, k.CloseTimestamp().After(k.OpenTimestamp()))
}

func TestKlineString(t *testing.T) {
	k := validKline()
	s := k.String()

	assert.Contains(t, s, testSymbol)
	assert.Contains(t, s, testInterval)
	assert.Contains(t, s, "42000.50")
}
