package dataset

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/johnayoung/go-coint-lab/internal/models"
)

// forEachCSVRow opens the zip archive at path, locates the CSV inside and
// invokes fn for every data row. A header row (first field not numeric) is
// skipped. limit > 0 stops after that many rows.
func forEachCSVRow(path string, limit int, fn func(record []string) error) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".csv") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s inside %s: %w", f.Name, path, err)
		}
		err = scanRows(rc, limit, fn)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s inside %s: %w", f.Name, path, err)
		}
		return nil
	}

	return fmt.Errorf("no csv found inside %s", path)
}

func scanRows(r io.Reader, limit int, fn func(record []string) error) error {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	rows := 0
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if first {
			first = false
			// Newer archive files carry a header row.
			if len(record) > 0 && !isNumeric(record[0]) {
				continue
			}
		}

		if err := fn(record); err != nil {
			return err
		}
		rows++
		if limit > 0 && rows >= limit {
			return nil
		}
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= '0' && s[0] <= '9'
}

// kline CSV schema: open time, open, high, low, close, volume, close time,
// quote asset volume, number of trades, taker buy base volume, taker buy
// quote volume, ignore.
const klineColumns = 12

func decodeKlineRecord(record []string, symbol, interval string) (models.Kline, error) {
	if len(record) < klineColumns {
		return models.Kline{}, fmt.Errorf("kline row has %d columns, want %d", len(record), klineColumns)
	}

	openTime, err := parseTimestamp(record[0])
	if err != nil {
		return models.Kline{}, fmt.Errorf("invalid open time %q: %w", record[0], err)
	}
	closeTime, err := parseTimestamp(record[6])
	if err != nil {
		return models.Kline{}, fmt.Errorf("invalid close time %q: %w", record[6], err)
	}
	tradeCount, err := strconv.ParseInt(record[8], 10, 64)
	if err != nil {
		return models.Kline{}, fmt.Errorf("invalid trade count %q: %w", record[8], err)
	}

	return models.Kline{
		OpenTime:            openTime,
		Open:                record[1],
		High:                record[2],
		Low:                 record[3],
		Close:               record[4],
		Volume:              record[5],
		CloseTime:           closeTime,
		QuoteAssetVolume:    record[7],
		TradeCount:          tradeCount,
		TakerBuyBaseVolume:  record[9],
		TakerBuyQuoteVolume: record[10],
		Symbol:              symbol,
		Interval:            interval,
	}, nil
}

// trade CSV schema: id, price, qty, quote qty, time, is buyer maker,
// is best match.
const tradeColumns = 7

func decodeTradeRecord(record []string) (models.Trade, error) {
	if len(record) < tradeColumns {
		return models.Trade{}, fmt.Errorf("trade row has %d columns, want %d", len(record), tradeColumns)
	}

	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid trade id %q: %w", record[0], err)
	}
	ts, err := parseTimestamp(record[4])
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid trade time %q: %w", record[4], err)
	}
	isBuyerMaker, err := strconv.ParseBool(record[5])
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid buyer maker flag %q: %w", record[5], err)
	}
	isBestMatch, err := strconv.ParseBool(record[6])
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid best match flag %q: %w", record[6], err)
	}

	return models.Trade{
		ID:           id,
		Price:        record[1],
		Qty:          record[2],
		QuoteQty:     record[3],
		Time:         ts,
		IsBuyerMaker: isBuyerMaker,
		IsBestMatch:  isBestMatch,
	}, nil
}

// aggTrades CSV schema: id, price, qty, first trade id, last trade id,
// time, is buyer maker, is best match.
const aggTradeColumns = 8

func decodeAggTradeRecord(record []string) (models.AggTrade, error) {
	if len(record) < aggTradeColumns {
		return models.AggTrade{}, fmt.Errorf("aggTrade row has %d columns, want %d", len(record), aggTradeColumns)
	}

	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return models.AggTrade{}, fmt.Errorf("invalid aggTrade id %q: %w", record[0], err)
	}
	firstID, err := strconv.ParseInt(record[3], 10, 64)
	if err != nil {
		return models.AggTrade{}, fmt.Errorf("invalid first trade id %q: %w", record[3], err)
	}
	lastID, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil {
		return models.AggTrade{}, fmt.Errorf("invalid last trade id %q: %w", record[4], err)
	}
	ts, err := parseTimestamp(record[5])
	if err != nil {
		return models.AggTrade{}, fmt.Errorf("invalid aggTrade time %q: %w", record[5], err)
	}
	isBuyerMaker, err := strconv.ParseBool(record[6])
	if err != nil {
		return models.AggTrade{}, fmt.Errorf("invalid buyer maker flag %q: %w", record[6], err)
	}
	isBestMatch, err := strconv.ParseBool(record[7])
	if err != nil {
		return models.AggTrade{}, fmt.Errorf("invalid best match flag %q: %w", record[7], err)
	}

	return models.AggTrade{
		ID:           id,
		Price:        record[1],
		Qty:          record[2],
		FirstTradeID: firstID,
		LastTradeID:  lastID,
		Time:         ts,
		IsBuyerMaker: isBuyerMaker,
		IsBestMatch:  isBestMatch,
	}, nil
}

// parseTimestamp reads an archive timestamp column. Files published after
// the end of 2024 stamp microseconds instead of milliseconds; both are
// normalized to milliseconds.
func parseTimestamp(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v > 1e15 {
		v /= 1000
	}
	return v, nil
}
