package dataset

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnayoung/go-coint-lab/internal/archive"
)

func writeArchive(t *testing.T, baseDir string, spec archive.Spec, day time.Time, header []string, rows [][]string) {
	t.Helper()

	path := spec.LocalPath(baseDir, day)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	csvName := strings.TrimSuffix(spec.FileName(day), ".zip") + ".csv"
	entry, err := zw.Create(csvName)
	require.NoError(t, err)

	cw := csv.NewWriter(entry)
	if header != nil {
		require.NoError(t, cw.Write(header))
	}
	require.NoError(t, cw.WriteAll(rows))
	cw.Flush()
	require.NoError(t, cw.Error())
	require.NoError(t, zw.Close())
}

var klineHeader = []string{
	"open_time", "open", "high", "low", "close", "volume", "close_time",
	"quote_volume", "count", "taker_buy_volume", "taker_buy_quote_volume", "ignore",
}

func ms(v int64) string { return strconv.FormatInt(v, 10) }

func klineRow(openTimeMs int64, closePrice string) []string {
	return []string{
		ms(openTimeMs), "100", "110", "90", closePrice, "5",
		ms(openTimeMs + 3599999),
		"500", "42", "2.5", "250", "0",
	}
}

func klineSpec(symbol string) archive.Spec {
	return archive.Spec{
		TradingType: archive.Spot,
		Kind:        archive.Klines,
		Period:      archive.Daily,
		Symbol:      symbol,
		Interval:    "1h",
	}
}

var (
	day1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
)

func day1Open(hour int) int64 {
	return day1.Add(time.Duration(hour) * time.Hour).UnixMilli()
}

func TestKlines_AssemblesAcrossDaysInCloseTimeOrder(t *testing.T) {
	baseDir := t.TempDir()
	spec := klineSpec("BTCUSDT")

	// Day two written first; ordering must come from close time, not
	// file iteration order.
	writeArchive(t, baseDir, spec, day2, klineHeader, [][]string{
		klineRow(day2.UnixMilli(), "103"),
	})
	writeArchive(t, baseDir, spec, day1, nil, [][]string{
		klineRow(day1Open(1), "102"),
		klineRow(day1Open(0), "101"),
	})

	a := NewAssembler(baseDir, nil)
	table, err := a.Klines(context.Background(), KlineRequest{
		TradingType: archive.Spot,
		Symbols:     map[string][]string{"BTCUSDT": {"1h"}},
		Start:       day1,
		End:         day2,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	times, closes, err := table.CloseSeries("BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, closes)
	for i := 1; i < len(times); i++ {
		assert.Less(t, times[i-1], times[i])
	}
	assert.Equal(t, "BTCUSDT", table.Rows[0].Symbol)
	assert.Equal(t, "1h", table.Rows[0].Interval)
}

func TestKlines_SkipsMissingFiles(t *testing.T) {
	baseDir := t.TempDir()
	spec := klineSpec("BTCUSDT")
	writeArchive(t, baseDir, spec, day1, klineHeader, [][]string{
		klineRow(day1Open(0), "101"),
	})

	a := NewAssembler(baseDir, nil)
	table, err := a.Klines(context.Background(), KlineRequest{
		TradingType: archive.Spot,
		Symbols:     map[string][]string{"BTCUSDT": {"1h"}},
		Start:       day1,
		End:         day1.AddDate(0, 0, 4), // four days never downloaded
	})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestKlines_MicrosecondTimestampsNormalized(t *testing.T) {
	baseDir := t.TempDir()
	spec := klineSpec("BTCUSDT")

	row := klineRow(day1Open(0), "101")
	row[0] = ms(day1Open(0) * 1000)              // microseconds
	row[6] = ms((day1Open(0) + 3599999) * 1000)  // microseconds
	writeArchive(t, baseDir, spec, day1, klineHeader, [][]string{row})

	a := NewAssembler(baseDir, nil)
	table, err := a.Klines(context.Background(), KlineRequest{
		TradingType: archive.Spot,
		Symbols:     map[string][]string{"BTCUSDT": {"1h"}},
		Start:       day1,
		End:         day1,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, day1Open(0), table.Rows[0].OpenTime)
}

func tradeSpec(symbol string) archive.Spec {
	return archive.Spec{
		TradingType: archive.Spot,
		Kind:        archive.Trades,
		Period:      archive.Daily,
		Symbol:      symbol,
	}
}

func tradeRow(id int64, price, qty, quoteQty string, timeMs int64) []string {
	return []string{ms(id), price, qty, quoteQty, ms(timeMs), "true", "true"}
}

func TestTrades_BucketsOnTenSecondGrid(t *testing.T) {
	baseDir := t.TempDir()
	base := day1.UnixMilli()

	writeArchive(t, baseDir, tradeSpec("BTCUSDT"), day1, nil, [][]string{
		// Two prints inside the first bucket, one in the next.
		tradeRow(1, "100", "1", "100", base+1_000),
		tradeRow(2, "110", "2", "220", base+9_999),
		tradeRow(3, "200", "1", "200", base+10_000),
	})

	a := NewAssembler(baseDir, nil)
	table, err := a.Trades(context.Background(), TradeRequest{
		TradingType: archive.Spot,
		Symbols:     []string{"BTCUSDT"},
		Start:       day1,
		End:         day1,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, base, first.Time)
	assert.Zero(t, first.Time%BucketMillis)
	assert.Equal(t, "105", first.Price.String())   // mean of 100 and 110
	assert.Equal(t, "3", first.Qty.String())       // summed
	assert.Equal(t, "320", first.QuoteQty.String())

	second := table.Rows[1]
	assert.Equal(t, base+10_000, second.Time)
	assert.Equal(t, "200", second.Price.String())
}

func TestTrades_LimitCapsRowsPerFile(t *testing.T) {
	baseDir := t.TempDir()
	base := day1.UnixMilli()

	rows := make([][]string, 0, 50)
	for i := int64(0); i < 50; i++ {
		rows = append(rows, tradeRow(i, "100", "1", "100", base+i*20_000))
	}
	writeArchive(t, baseDir, tradeSpec("BTCUSDT"), day1, nil, rows)

	a := NewAssembler(baseDir, nil)
	table, err := a.Trades(context.Background(), TradeRequest{
		TradingType: archive.Spot,
		Symbols:     []string{"BTCUSDT"},
		Start:       day1,
		End:         day1,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 10)
}

func aggTradeRow(id int64, price string, timeMs int64) []string {
	return []string{ms(id), price, "1.5", ms(id), ms(id), ms(timeMs), "false", "true"}
}

func TestAggTrades_OrderedByTime(t *testing.T) {
	baseDir := t.TempDir()
	base := day1.UnixMilli()

	spec := archive.Spec{
		TradingType: archive.Spot,
		Kind:        archive.AggTrades,
		Period:      archive.Daily,
		Symbol:      "BTCUSDT",
	}
	writeArchive(t, baseDir, spec, day1, nil, [][]string{
		aggTradeRow(2, "101", base+2000),
		aggTradeRow(1, "100", base+1000),
	})

	a := NewAssembler(baseDir, nil)
	rows, err := a.AggTrades(context.Background(), AggTradeRequest{
		TradingType: archive.Spot,
		Symbol:      "BTCUSDT",
		Start:       day1,
		End:         day1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(2), rows[1].ID)
}

func TestClosePanel_TruncatesToShortestSeries(t *testing.T) {
	baseDir := t.TempDir()

	writeArchive(t, baseDir, klineSpec("BTCUSDT"), day1, klineHeader, [][]string{
		klineRow(day1Open(0), "100"),
		klineRow(day1Open(1), "101"),
		klineRow(day1Open(2), "102"),
	})
	writeArchive(t, baseDir, klineSpec("ETHUSDT"), day1, klineHeader, [][]string{
		klineRow(day1Open(0), "10"),
		klineRow(day1Open(1), "11"),
	})

	a := NewAssembler(baseDir, nil)
	panel, err := a.ClosePanel(context.Background(), archive.Spot,
		[]string{"BTCUSDT", "ETHUSDT"}, "1h", day1, day1)
	require.NoError(t, err)

	assert.Equal(t, 2, panel.Rows())
	assert.Len(t, panel.Times, 2)
	assert.Equal(t, []float64{100, 101}, panel.Column(0))
	assert.Equal(t, []float64{10, 11}, panel.Column(1))
	assert.Equal(t, []float64{101, 11}, panel.Data[1])
}

func TestClosePanel_Errors(t *testing.T) {
	a := NewAssembler(t.TempDir(), nil)

	_, err := a.ClosePanel(context.Background(), archive.Spot,
		[]string{"BTCUSDT"}, "1h", day1, day1)
	assert.ErrorContains(t, err, "at least 2 symbols")

	_, err = a.ClosePanel(context.Background(), archive.Spot,
		[]string{"BTCUSDT", "ETHUSDT"}, "1h", day1, day1)
	assert.ErrorContains(t, err, "no kline data on disk")
}
