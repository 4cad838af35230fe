// Package models provides data structures and validation for Binance
// archive market data: klines, raw trade prints, aggregated trades and
// the fixed-grid trade buckets the dataset assembler produces.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kline represents one row of the archive's 12-column kline CSV schema,
// tagged with the symbol and interval it was downloaded for. Prices and
// volumes are kept as decimal strings exactly as they appear in the CSV;
// use the decimal accessors for arithmetic.
type Kline struct {
	OpenTime            int64  `json:"open_time" db:"open_time"`   // epoch milliseconds
	Open                string `json:"open" db:"open"`
	High                string `json:"high" db:"high"`
	Low                 string `json:"low" db:"low"`
	Close               string `json:"close" db:"close"`
	Volume              string `json:"volume" db:"volume"`
	CloseTime           int64  `json:"close_time" db:"close_time"` // epoch milliseconds
	QuoteAssetVolume    string `json:"quote_asset_volume" db:"quote_asset_volume"`
	TradeCount          int64  `json:"trade_count" db:"trade_count"`
	TakerBuyBaseVolume  string `json:"taker_buy_base_volume" db:"taker_buy_base_volume"`
	TakerBuyQuoteVolume string `json:"taker_buy_quote_volume" db:"taker_buy_quote_volume"`
	Symbol              string `json:"symbol" db:"symbol"`
	Interval            string `json:"interval" db:"interval"`
}

// ValidationError represents a model validation error with field context.
type ValidationError struct {
	Field   string // Field is the name of the field that failed validation
	Message string // Message describes the validation failure
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// Validate performs validation on the kline: all price fields must parse
// as positive decimals, volumes must be non-negative, timestamps must be
// ordered, and the OHLC relationship must hold (high >= max(open, close),
// low <= min(open, close)).
func (k *Kline) Validate() error {
	if k.OpenTime <= 0 {
		return &ValidationError{Field: "open_time", Message: "open time must be positive"}
	}
	if k.CloseTime <= k.OpenTime {
		return &ValidationError{Field: "close_time", Message: "close time must be after open time"}
	}

	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return &ValidationError{Field: "open", Message: fmt.Sprintf("invalid open price format: %v", err)}
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return &ValidationError{Field: "high", Message: fmt.Sprintf("invalid high price format: %v", err)}
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return &ValidationError{Field: "low", Message: fmt.Sprintf("invalid low price format: %v", err)}
	}
	close, err := decimal.NewFromString(k.Close)
	if err != nil {
		return &ValidationError{Field: "close", Message: fmt.Sprintf("invalid close price format: %v", err)}
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return &ValidationError{Field: "volume", Message: fmt.Sprintf("invalid volume format: %v", err)}
	}

	zero := decimal.Zero
	if open.LessThanOrEqual(zero) {
		return &ValidationError{Field: "open", Message: "open price must be greater than 0"}
	}
	if high.LessThanOrEqual(zero) {
		return &ValidationError{Field: "high", Message: "high price must be greater than 0"}
	}
	if low.LessThanOrEqual(zero) {
		return &ValidationError{Field: "low", Message: "low price must be greater than 0"}
	}
	if close.LessThanOrEqual(zero) {
		return &ValidationError{Field: "close", Message: "close price must be greater than 0"}
	}
	if volume.LessThan(zero) {
		return &ValidationError{Field: "volume", Message: "volume must be greater than or equal to 0"}
	}

	maxOpenClose := decimal.Max(open, close)
	if high.LessThan(maxOpenClose) {
		return &ValidationError{
			Field:   "high",
			Message: fmt.Sprintf("high price (%s) must be greater than or equal to max(open, close) (%s)", high, maxOpenClose),
		}
	}

	minOpenClose := decimal.Min(open, close)
	if low.GreaterThan(minOpenClose) {
		return &ValidationError{
			Field:   "low",
			Message: fmt.Sprintf("low price (%s) must be less than or equal to min(open, close) (%s)", low, minOpenClose),
		}
	}

	if k.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}
	if k.Interval == "" {
		return &ValidationError{Field: "interval", Message: "interval cannot be empty"}
	}

	return nil
}

// OpenDecimal returns the open price as a decimal.Decimal.
func (k *Kline) OpenDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.Open)
}

// HighDecimal returns the high price as a decimal.Decimal.
func (k *Kline) HighDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.High)
}

// LowDecimal returns the low price as a decimal.Decimal.
func (k *Kline) LowDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.Low)
}

// CloseDecimal returns the close price as a decimal.Decimal.
func (k *Kline) CloseDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.Close)
}

// VolumeDecimal returns the base asset volume as a decimal.Decimal.
func (k *Kline) VolumeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.Volume)
}

// QuoteAssetVolumeDecimal returns the quote asset volume as a decimal.Decimal.
func (k *Kline) QuoteAssetVolumeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.QuoteAssetVolume)
}

// TakerBuyBaseVolumeDecimal returns the taker buy base volume as a decimal.Decimal.
func (k *Kline) TakerBuyBaseVolumeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.TakerBuyBaseVolume)
}

// TakerBuyQuoteVolumeDecimal returns the taker buy quote volume as a decimal.Decimal.
func (k *Kline) TakerBuyQuoteVolumeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(k.TakerBuyQuoteVolume)
}

// OpenTimestamp returns the open time as a UTC time.Time.
func (k *Kline) OpenTimestamp() time.Time {
	return time.UnixMilli(k.OpenTime).UTC()
}

// CloseTimestamp returns the close time as a UTC time.Time.
func (k *Kline) CloseTimestamp() time.Time {
	return time.UnixMilli(k.CloseTime).UTC()
}

// String returns a human-readable representation of the kline.
func (k *Kline) String() string {
	return fmt.Sprintf("Kline{Symbol: %s, Interval: %s, CloseTime: %s, O: %s, H: %s, L: %s, C: %s, V: %s}",
		k.Symbol, k.Interval, k.CloseTimestamp().Format(time.RFC3339), k.Open, k.High, k.Low, k.Close, k.Volume)
}
