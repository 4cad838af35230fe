// Package archive resolves Binance Vision archive locations.
//
// The public archive at data.binance.vision publishes one zip file per
// symbol per day (or per month) following a fixed directory convention.
// This package derives remote paths, file names and the mirrored local
// layout deterministically from a small set of enums, so the fetcher and
// the dataset assembler always agree on where a file lives.
package archive

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// BaseURL is the root of the Binance Vision public archive.
const BaseURL = "https://data.binance.vision/"

// DateLayout is the day format used in daily archive file names.
const DateLayout = "2006-01-02"

// MonthLayout is the month format used in monthly archive file names.
const MonthLayout = "2006-01"

// TradingType identifies the market segment an archive belongs to.
type TradingType string

const (
	// Spot is the spot market.
	Spot TradingType = "spot"
	// USDMFutures is the USD-margined futures market.
	USDMFutures TradingType = "um"
	// CoinMFutures is the coin-margined futures market.
	CoinMFutures TradingType = "cm"
)

// Kind identifies the market-data product inside the archive.
type Kind string

const (
	// Klines are OHLCV candles at a fixed interval.
	Klines Kind = "klines"
	// Trades are raw trade prints.
	Trades Kind = "trades"
	// AggTrades are aggregated trade prints.
	AggTrades Kind = "aggTrades"
)

// Period identifies the archive granularity.
type Period string

const (
	// Daily archives hold one UTC day per file.
	Daily Period = "daily"
	// Monthly archives hold one calendar month per file.
	Monthly Period = "monthly"
)

// Intervals lists every kline interval the archive publishes.
var Intervals = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h",
	"1d", "3d", "1w", "1mo",
}

// DailyIntervals lists the intervals available in daily archives.
// The archive only splits intraday and daily candles per day; wider
// intervals exist in monthly archives only.
var DailyIntervals = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h", "1d",
}

// Error reports an invalid archive specification.
type Error struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("invalid archive spec: %s: %s", e.Field, e.Message)
}

// Spec identifies one symbol's archive stream: which market, which product,
// at which granularity, and for klines at which interval.
type Spec struct {
	TradingType TradingType
	Kind        Kind
	Period      Period
	Symbol      string
	Interval    string
}

// Validate checks the spec against the archive's published conventions.
// Klines require an interval; trades and aggTrades must not carry one.
func (s Spec) Validate() error {
	switch s.TradingType {
	case Spot, USDMFutures, CoinMFutures:
	default:
		return &Error{Field: "trading_type", Message: fmt.Sprintf("unknown trading type %q", s.TradingType)}
	}

	switch s.Kind {
	case Klines, Trades, AggTrades:
	default:
		return &Error{Field: "kind", Message: fmt.Sprintf("unknown market data kind %q", s.Kind)}
	}

	switch s.Period {
	case Daily, Monthly:
	default:
		return &Error{Field: "period", Message: fmt.Sprintf("unknown period %q", s.Period)}
	}

	if s.Symbol == "" {
		return &Error{Field: "symbol", Message: "symbol cannot be empty"}
	}

	if s.Kind == Klines {
		if s.Interval == "" {
			return &Error{Field: "interval", Message: "interval is required for klines"}
		}
		valid := Intervals
		if s.Period == Daily {
			valid = DailyIntervals
		}
		if !contains(valid, s.Interval) {
			return &Error{Field: "interval", Message: fmt.Sprintf("interval %q not published for %s klines", s.Interval, s.Period)}
		}
	} else if s.Interval != "" {
		return &Error{Field: "interval", Message: fmt.Sprintf("interval must be empty for %s", s.Kind)}
	}

	return nil
}

// Dir returns the archive directory for the spec, relative to the archive
// root, with a trailing slash. Examples:
//
//	data/spot/daily/klines/BTCUSDT/15m/
//	data/futures/um/daily/trades/BTCUSDT/
func (s Spec) Dir() string {
	root := "data/spot"
	if s.TradingType != Spot {
		root = "data/futures/" + string(s.TradingType)
	}
	if s.Kind == Klines {
		return path.Join(root, string(s.Period), string(s.Kind), s.uppercaseSymbol(), s.Interval) + "/"
	}
	return path.Join(root, string(s.Period), string(s.Kind), s.uppercaseSymbol()) + "/"
}

// FileName returns the archive file name for one day (daily specs) or the
// day's month (monthly specs).
//
//	BTCUSDT-15m-2021-11-01.zip
//	BTCUSDT-trades-2021-11.zip
func (s Spec) FileName(day time.Time) string {
	stamp := day.Format(DateLayout)
	if s.Period == Monthly {
		stamp = day.Format(MonthLayout)
	}
	if s.Kind == Klines {
		return fmt.Sprintf("%s-%s-%s.zip", s.uppercaseSymbol(), s.Interval, stamp)
	}
	return fmt.Sprintf("%s-%s-%s.zip", s.uppercaseSymbol(), s.Kind, stamp)
}

// ChecksumFileName returns the name of the archive's checksum companion.
func (s Spec) ChecksumFileName(day time.Time) string {
	return s.FileName(day) + ".CHECKSUM"
}

// URL returns the absolute download URL for one day's archive.
func (s Spec) URL(day time.Time) string {
	return BaseURL + s.Dir() + s.FileName(day)
}

// LocalPath returns where the archive lives on disk under baseDir. The
// local layout mirrors the remote directory convention so downloaded data
// can be located by the same spec.
func (s Spec) LocalPath(baseDir string, day time.Time) string {
	return filepath.Join(baseDir, filepath.FromSlash(s.Dir()), s.FileName(day))
}

func (s Spec) uppercaseSymbol() string {
	return strings.ToUpper(s.Symbol)
}

// DayRange returns every UTC day from start to end inclusive. Start and end
// are truncated to midnight; an empty slice is returned when end precedes
// start.
func DayRange(start, end time.Time) []time.Time {
	start = truncateDay(start)
	end = truncateDay(end)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// MonthRange returns the first day of every month touched by [start, end].
func MonthRange(start, end time.Time) []time.Time {
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
