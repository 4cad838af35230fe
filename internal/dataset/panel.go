package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/johnayoung/go-coint-lab/internal/archive"
)

// ClosePanel is an aligned close-price matrix for N symbols at one
// interval: row t holds the t-th close of every symbol. Series of unequal
// length are truncated to the shortest so every row is complete.
type ClosePanel struct {
	Symbols  []string
	Interval string

	// Times are the close times (epoch milliseconds) of the first
	// symbol's series, truncated to the panel length.
	Times []int64

	// Data is row-major: Data[t][i] is symbol i's close at row t.
	Data [][]float64
}

// Rows returns the number of aligned observations.
func (p *ClosePanel) Rows() int { return len(p.Data) }

// Column returns symbol i's close series.
func (p *ClosePanel) Column(i int) []float64 {
	col := make([]float64, len(p.Data))
	for t := range p.Data {
		col[t] = p.Data[t][i]
	}
	return col
}

// ClosePanel assembles the aligned close matrix the cointegration test
// consumes: one kline dataset per symbol at a shared interval, truncated
// to the shortest series.
func (a *Assembler) ClosePanel(ctx context.Context, tradingType archive.TradingType, symbols []string, interval string, start, end time.Time) (*ClosePanel, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("close panel needs at least 2 symbols, got %d", len(symbols))
	}

	series := make([][]float64, len(symbols))
	var times []int64
	minLen := -1

	for i, symbol := range symbols {
		table, err := a.Klines(ctx, KlineRequest{
			TradingType: tradingType,
			Symbols:     map[string][]string{symbol: {interval}},
			Start:       start,
			End:         end,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to assemble %s klines: %w", symbol, err)
		}

		ts, closes, err := table.CloseSeries(symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s closes: %w", symbol, err)
		}
		if len(closes) == 0 {
			return nil, fmt.Errorf("no kline data on disk for %s %s between %s and %s",
				symbol, interval, start.Format(archive.DateLayout), end.Format(archive.DateLayout))
		}

		series[i] = closes
		if i == 0 {
			times = ts
		}
		if minLen < 0 || len(closes) < minLen {
			minLen = len(closes)
		}
	}

	panel := &ClosePanel{
		Symbols:  symbols,
		Interval: interval,
		Times:    times[:minLen],
		Data:     make([][]float64, minLen),
	}
	for t := 0; t < minLen; t++ {
		row := make([]float64, len(symbols))
		for i := range symbols {
			row[i] = series[i][t]
		}
		panel.Data[t] = row
	}
	return panel, nil
}
