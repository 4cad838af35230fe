// Package dataset rebuilds time-ordered tables from downloaded archives.
//
// The archive publishes thousands of small per-day zip files. The
// assembler walks the local mirror the downloader maintains, parses the
// CSV inside each zip, and concatenates everything a request spans into a
// single table: klines ordered by close time, or raw trade prints
// re-bucketed onto a fixed 10-second grid and ordered by bucket time.
// Files absent from the local mirror are skipped with a warning, matching
// the fetcher's tolerance for archive gaps.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/johnayoung/go-coint-lab/internal/archive"
	"github.com/johnayoung/go-coint-lab/internal/models"
)

// BucketMillis is the trade re-bucketing grid: trade times are floored to
// 10-second boundaries in epoch milliseconds.
const BucketMillis int64 = 10_000

// Assembler reads downloaded archives from a local base directory.
type Assembler struct {
	baseDir string
	logger  *slog.Logger
}

// NewAssembler creates an Assembler over the downloader's base directory.
func NewAssembler(baseDir string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{baseDir: baseDir, logger: logger}
}

// KlineRequest selects kline archives to assemble. Symbols maps each
// symbol to the intervals wanted for it.
type KlineRequest struct {
	TradingType archive.TradingType
	Symbols     map[string][]string
	Start       time.Time
	End         time.Time
}

// KlineTable is an assembled, close-time-ordered kline dataset.
type KlineTable struct {
	Rows []models.Kline
}

// CloseSeries extracts the close-time/close-price series for one
// symbol/interval from the table, preserving row order.
func (t *KlineTable) CloseSeries(symbol, interval string) (times []int64, closes []float64, err error) {
	for i := range t.Rows {
		row := &t.Rows[i]
		if row.Symbol != symbol || row.Interval != interval {
			continue
		}
		c, derr := row.CloseDecimal()
		if derr != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, derr)
		}
		f, _ := c.Float64()
		times = append(times, row.CloseTime)
		closes = append(closes, f)
	}
	return times, closes, nil
}

// Klines assembles every kline archive the request spans into one table
// sorted by close time.
func (a *Assembler) Klines(ctx context.Context, req KlineRequest) (*KlineTable, error) {
	table := &KlineTable{}

	for symbol, intervals := range req.Symbols {
		for _, interval := range intervals {
			spec := archive.Spec{
				TradingType: req.TradingType,
				Kind:        archive.Klines,
				Period:      archive.Daily,
				Symbol:      symbol,
				Interval:    interval,
			}
			if err := spec.Validate(); err != nil {
				return nil, err
			}

			for _, day := range archive.DayRange(req.Start, req.End) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}

				path := spec.LocalPath(a.baseDir, day)
				if _, err := os.Stat(path); os.IsNotExist(err) {
					a.logger.Warn("archive file missing locally, skipping",
						"path", path)
					continue
				}

				err := forEachCSVRow(path, 0, func(record []string) error {
					kline, derr := decodeKlineRecord(record, symbol, interval)
					if derr != nil {
						return derr
					}
					table.Rows = append(table.Rows, kline)
					return nil
				})
				if err != nil {
					return nil, err
				}
			}
		}
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		return table.Rows[i].CloseTime < table.Rows[j].CloseTime
	})

	a.logger.Debug("assembled kline table", "rows", len(table.Rows))
	return table, nil
}

// TradeRequest selects trade archives to assemble and bucket.
type TradeRequest struct {
	TradingType archive.TradingType
	Symbols     []string
	Start       time.Time
	End         time.Time

	// Limit caps the number of rows read per archive file. Zero reads
	// everything.
	Limit int
}

// TradeTable is an assembled, time-ordered table of bucketed trades.
type TradeTable struct {
	Rows []models.TradeBucket
}

// PriceSeries extracts the bucket-time/mean-price series for one symbol.
func (t *TradeTable) PriceSeries(symbol string) (times []int64, prices []float64) {
	for i := range t.Rows {
		row := &t.Rows[i]
		if row.Symbol != symbol {
			continue
		}
		f, _ := row.Price.Float64()
		times = append(times, row.Time)
		prices = append(prices, f)
	}
	return times, prices
}

// bucketAccumulator collects the running sums for one (symbol, time)
// bucket. The mean price divides at the end so precision is kept in
// decimal space throughout.
type bucketAccumulator struct {
	priceSum decimal.Decimal
	qtySum   decimal.Decimal
	quoteSum decimal.Decimal
	count    int64
}

// Trades assembles raw trade archives, floors each print's timestamp to
// the 10-second grid, aggregates per bucket (mean price, summed
// quantities) and returns the buckets ordered by time.
func (a *Assembler) Trades(ctx context.Context, req TradeRequest) (*TradeTable, error) {
	table := &TradeTable{}

	for _, symbol := range req.Symbols {
		spec := archive.Spec{
			TradingType: req.TradingType,
			Kind:        archive.Trades,
			Period:      archive.Daily,
			Symbol:      symbol,
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}

		buckets := make(map[int64]*bucketAccumulator)

		for _, day := range archive.DayRange(req.Start, req.End) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			path := spec.LocalPath(a.baseDir, day)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				a.logger.Warn("archive file missing locally, skipping",
					"path", path)
				continue
			}

			err := forEachCSVRow(path, req.Limit, func(record []string) error {
				trade, derr := decodeTradeRecord(record)
				if derr != nil {
					return derr
				}

				price, derr := trade.PriceDecimal()
				if derr != nil {
					return derr
				}
				qty, derr := trade.QtyDecimal()
				if derr != nil {
					return derr
				}
				quoteQty, derr := trade.QuoteQtyDecimal()
				if derr != nil {
					return derr
				}

				bucketTime := trade.Time - trade.Time%BucketMillis
				acc, ok := buckets[bucketTime]
				if !ok {
					acc = &bucketAccumulator{}
					buckets[bucketTime] = acc
				}
				acc.priceSum = acc.priceSum.Add(price)
				acc.qtySum = acc.qtySum.Add(qty)
				acc.quoteSum = acc.quoteSum.Add(quoteQty)
				acc.count++
				return nil
			})
			if err != nil {
				return nil, err
			}
		}

		for bucketTime, acc := range buckets {
			table.Rows = append(table.Rows, models.TradeBucket{
				Time:     bucketTime,
				Price:    acc.priceSum.Div(decimal.NewFromInt(acc.count)),
				Qty:      acc.qtySum,
				QuoteQty: acc.quoteSum,
				Symbol:   symbol,
			})
		}
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		if table.Rows[i].Time != table.Rows[j].Time {
			return table.Rows[i].Time < table.Rows[j].Time
		}
		return table.Rows[i].Symbol < table.Rows[j].Symbol
	})

	a.logger.Debug("assembled trade table", "buckets", len(table.Rows))
	return table, nil
}

// AggTradeRequest selects aggTrades archives to assemble.
type AggTradeRequest struct {
	TradingType archive.TradingType
	Symbol      string
	Start       time.Time
	End         time.Time
	Limit       int
}

// AggTrades assembles aggregated trade archives for one symbol in time
// order. Aggregated prints stay raw; callers wanting grid aggregation
// should use Trades.
func (a *Assembler) AggTrades(ctx context.Context, req AggTradeRequest) ([]models.AggTrade, error) {
	spec := archive.Spec{
		TradingType: req.TradingType,
		Kind:        archive.AggTrades,
		Period:      archive.Daily,
		Symbol:      req.Symbol,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var rows []models.AggTrade
	for _, day := range archive.DayRange(req.Start, req.End) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := spec.LocalPath(a.baseDir, day)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.logger.Warn("archive file missing locally, skipping", "path", path)
			continue
		}

		err := forEachCSVRow(path, req.Limit, func(record []string) error {
			trade, derr := decodeAggTradeRecord(record)
			if derr != nil {
				return derr
			}
			rows = append(rows, trade)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })
	return rows, nil
}
