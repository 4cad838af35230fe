package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade represents one row of the archive's 7-column trade CSV schema.
type Trade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	QuoteQty     string `json:"quote_qty"`
	Time         int64  `json:"time"` // epoch milliseconds
	IsBuyerMaker bool   `json:"is_buyer_maker"`
	IsBestMatch  bool   `json:"is_best_match"`
}

// Validate checks that the trade carries a positive timestamp and
// parseable, non-negative price and quantity fields.
func (t *Trade) Validate() error {
	if t.Time <= 0 {
		return &ValidationError{Field: "time", Message: "trade time must be positive"}
	}

	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("invalid price format: %v", err)}
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "price", Message: "price must be greater than 0"}
	}

	qty, err := decimal.NewFromString(t.Qty)
	if err != nil {
		return &ValidationError{Field: "qty", Message: fmt.Sprintf("invalid quantity format: %v", err)}
	}
	if qty.LessThan(decimal.Zero) {
		return &ValidationError{Field: "qty", Message: "quantity must be greater than or equal to 0"}
	}

	if _, err := decimal.NewFromString(t.QuoteQty); err != nil {
		return &ValidationError{Field: "quote_qty", Message: fmt.Sprintf("invalid quote quantity format: %v", err)}
	}

	return nil
}

// PriceDecimal returns the trade price as a decimal.Decimal.
func (t *Trade) PriceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Price)
}

// QtyDecimal returns the traded base quantity as a decimal.Decimal.
func (t *Trade) QtyDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Qty)
}

// QuoteQtyDecimal returns the traded quote quantity as a decimal.Decimal.
func (t *Trade) QuoteQtyDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(t.QuoteQty)
}

// AggTrade represents one row of the archive's aggTrades CSV schema.
// Aggregated trades compact consecutive fills at the same price into a
// single print spanning a range of raw trade ids.
type AggTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	FirstTradeID int64  `json:"first_trade_id"`
	LastTradeID  int64  `json:"last_trade_id"`
	Time         int64  `json:"time"` // epoch milliseconds
	IsBuyerMaker bool   `json:"is_buyer_maker"`
	IsBestMatch  bool   `json:"is_best_match"`
}

// Validate checks timestamp, price, quantity and trade id ordering.
func (a *AggTrade) Validate() error {
	if a.Time <= 0 {
		return &ValidationError{Field: "time", Message: "trade time must be positive"}
	}
	if a.LastTradeID < a.FirstTradeID {
		return &ValidationError{Field: "last_trade_id", Message: "last trade id must not precede first trade id"}
	}

	price, err := decimal.NewFromString(a.Price)
	if err != nil {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("invalid price format: %v", err)}
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "price", Message: "price must be greater than 0"}
	}

	if _, err := decimal.NewFromString(a.Qty); err != nil {
		return &ValidationError{Field: "qty", Message: fmt.Sprintf("invalid quantity format: %v", err)}
	}

	return nil
}

// TradeBucket is a fixed-grid aggregate of raw trade prints: the bucket
// time is the trade time floored to the grid, the price is the mean of
// all prints in the bucket, and the quantities are summed.
type TradeBucket struct {
	Time     int64           `json:"time"` // epoch milliseconds, multiple of the grid
	Price    decimal.Decimal `json:"price"`
	Qty      decimal.Decimal `json:"qty"`
	QuoteQty decimal.Decimal `json:"quote_qty"`
	Symbol   string          `json:"symbol"`
}

// String returns a human-readable representation of the bucket.
func (b *TradeBucket) String() string {
	return fmt.Sprintf("TradeBucket{Symbol: %s, Time: %d, Price: %s, Qty: %s}",
		b.Symbol, b.Time, b.Price, b.Qty)
}
