package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/johnayoung/go-coint-lab/internal/models"
)

// DuckDBStore implements Store on DuckDB. Bulk inserts go through the
// DuckDB Appender API; reads use plain SQL over the single shared
// connection DuckDB prefers for a single-writer workload.
type DuckDBStore struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewDuckDBStore opens a DuckDB database at dbPath, or in memory when
// dbPath is ":memory:".
func NewDuckDBStore(dbPath string, logger *slog.Logger) (*DuckDBStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, NewStorageError("open", "", fmt.Errorf("failed to open DuckDB database: %w", err))
	}

	// Single writer pattern as recommended for DuckDB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &DuckDBStore{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// Initialize creates the klines table and its indexes. Idempotent.
func (d *DuckDBStore) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("initializing DuckDB storage", "db_path", d.dbPath)

	schema := `
	CREATE TABLE IF NOT EXISTS klines (
		symbol VARCHAR NOT NULL,
		interval VARCHAR NOT NULL,
		open_time BIGINT NOT NULL,
		close_time BIGINT NOT NULL,
		open DOUBLE NOT NULL,
		high DOUBLE NOT NULL,
		low DOUBLE NOT NULL,
		close DOUBLE NOT NULL,
		volume DOUBLE NOT NULL,
		quote_volume DOUBLE NOT NULL,
		trade_count BIGINT NOT NULL,
		taker_buy_base DOUBLE NOT NULL,
		taker_buy_quote DOUBLE NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT klines_pk PRIMARY KEY (symbol, interval, open_time),
		CONSTRAINT klines_ohlc_valid CHECK (high >= open AND high >= close AND low <= open AND low <= close),
		CONSTRAINT klines_prices_positive CHECK (open > 0 AND high > 0 AND low > 0 AND close > 0),
		CONSTRAINT klines_volume_non_negative CHECK (volume >= 0),
		CONSTRAINT klines_time_order CHECK (close_time > open_time)
	)`
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return NewStorageError("initialize", "klines", fmt.Errorf("failed to create klines table: %w", err))
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_klines_symbol_interval ON klines (symbol, interval)",
		"CREATE INDEX IF NOT EXISTS idx_klines_close_time ON klines (close_time)",
	}
	for _, q := range indexes {
		if _, err := d.db.ExecContext(ctx, q); err != nil {
			return NewStorageError("initialize", "klines", fmt.Errorf("failed to create index: %w", err))
		}
	}

	d.logger.Info("DuckDB storage initialized")
	return nil
}

// StoreBatch bulk-inserts klines through the Appender API. Rows already
// stored for the same symbol, interval and open time are replaced first,
// so re-ingesting a date range is idempotent.
func (d *DuckDBStore) StoreBatch(ctx context.Context, klines []models.Kline) error {
	if len(klines) == 0 {
		return nil
	}

	start := time.Now()

	for i := range klines {
		if err := klines[i].Validate(); err != nil {
			return NewInsertError("klines", fmt.Errorf("invalid kline at index %d: %w", i, err))
		}
	}

	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db == nil {
		return NewInsertError("klines", fmt.Errorf("database connection is closed"))
	}

	if err := d.deleteOverlap(ctx, klines); err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return NewInsertError("klines", fmt.Errorf("failed to get connection: %w", err))
	}
	defer conn.Close()

	var driverConn *duckdb.Conn
	err = conn.Raw(func(dc interface{}) error {
		var ok bool
		driverConn, ok = dc.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("underlying connection is not a DuckDB connection")
		}
		return nil
	})
	if err != nil {
		return NewInsertError("klines", fmt.Errorf("failed to get DuckDB connection: %w", err))
	}

	appender, err := duckdb.NewAppenderFromConn(driverConn, "", "klines")
	if err != nil {
		return NewInsertError("klines", fmt.Errorf("failed to create appender: %w", err))
	}
	defer appender.Close()

	for i := range klines {
		if err := d.appendKline(appender, &klines[i]); err != nil {
			return NewInsertError("klines", fmt.Errorf("failed to append kline %s: %w", klines[i].String(), err))
		}
	}

	if err := appender.Flush(); err != nil {
		return NewInsertError("klines", fmt.Errorf("failed to flush appender: %w", err))
	}

	d.logger.Debug("stored kline batch",
		"count", len(klines),
		"duration", time.Since(start))
	return nil
}

// deleteOverlap removes rows the incoming batch will rewrite, keyed by
// the open-time span per symbol and interval.
func (d *DuckDBStore) deleteOverlap(ctx context.Context, klines []models.Kline) error {
	type span struct{ min, max int64 }
	spans := make(map[[2]string]*span)

	for i := range klines {
		key := [2]string{klines[i].Symbol, klines[i].Interval}
		s, ok := spans[key]
		if !ok {
			spans[key] = &span{min: klines[i].OpenTime, max: klines[i].OpenTime}
			continue
		}
		if klines[i].OpenTime < s.min {
			s.min = klines[i].OpenTime
		}
		if klines[i].OpenTime > s.max {
			s.max = klines[i].OpenTime
		}
	}

	for key, s := range spans {
		_, err := d.db.ExecContext(ctx,
			"DELETE FROM klines WHERE symbol = ? AND interval = ? AND open_time BETWEEN ? AND ?",
			key[0], key[1], s.min, s.max)
		if err != nil {
			return NewStorageError("delete", "klines", fmt.Errorf("failed to clear overlapping rows: %w", err))
		}
	}
	return nil
}

// appendKline appends one row; decimal fields are converted to float64
// for the Appender API.
func (d *DuckDBStore) appendKline(appender *duckdb.Appender, k *models.Kline) error {
	open, err := k.OpenDecimal()
	if err != nil {
		return err
	}
	high, err := k.HighDecimal()
	if err != nil {
		return err
	}
	low, err := k.LowDecimal()
	if err != nil {
		return err
	}
	closePrice, err := k.CloseDecimal()
	if err != nil {
		return err
	}
	volume, err := k.VolumeDecimal()
	if err != nil {
		return err
	}
	quoteVolume, err := k.QuoteAssetVolumeDecimal()
	if err != nil {
		return err
	}
	takerBase, err := k.TakerBuyBaseVolumeDecimal()
	if err != nil {
		return err
	}
	takerQuote, err := k.TakerBuyQuoteVolumeDecimal()
	if err != nil {
		return err
	}

	openF, _ := open.Float64()
	highF, _ := high.Float64()
	lowF, _ := low.Float64()
	closeF, _ := closePrice.Float64()
	volumeF, _ := volume.Float64()
	quoteF, _ := quoteVolume.Float64()
	takerBaseF, _ := takerBase.Float64()
	takerQuoteF, _ := takerQuote.Float64()

	return appender.AppendRow(
		k.Symbol,
		k.Interval,
		k.OpenTime,
		k.CloseTime,
		openF,
		highF,
		lowF,
		closeF,
		volumeF,
		quoteF,
		k.TradeCount,
		takerBaseF,
		takerQuoteF,
		time.Now().UTC(),
	)
}

// Query retrieves klines ordered by close time.
func (d *DuckDBStore) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	start := time.Now()

	if req.Symbol == "" || req.Interval == "" {
		return nil, NewQueryError("klines", fmt.Errorf("symbol and interval are required"))
	}

	query := `
	SELECT symbol, interval, open_time, close_time,
	       open, high, low, close, volume, quote_volume,
	       trade_count, taker_buy_base, taker_buy_quote
	FROM klines
	WHERE symbol = ? AND interval = ?`
	args := []interface{}{req.Symbol, req.Interval}

	if req.Start > 0 {
		query += " AND close_time >= ?"
		args = append(args, req.Start)
	}
	if req.End > 0 {
		query += " AND close_time <= ?"
		args = append(args, req.End)
	}
	query += " ORDER BY close_time ASC"
	if req.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, req.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewQueryError("klines", fmt.Errorf("failed to execute query: %w", err))
	}
	defer rows.Close()

	var klines []models.Kline
	for rows.Next() {
		var k models.Kline
		var open, high, low, closePrice, volume, quoteVolume, takerBase, takerQuote float64
		if err := rows.Scan(
			&k.Symbol, &k.Interval, &k.OpenTime, &k.CloseTime,
			&open, &high, &low, &closePrice, &volume, &quoteVolume,
			&k.TradeCount, &takerBase, &takerQuote,
		); err != nil {
			return nil, NewQueryError("klines", fmt.Errorf("failed to scan row: %w", err))
		}
		k.Open = formatPrice(open)
		k.High = formatPrice(high)
		k.Low = formatPrice(low)
		k.Close = formatPrice(closePrice)
		k.Volume = formatPrice(volume)
		k.QuoteAssetVolume = formatPrice(quoteVolume)
		k.TakerBuyBaseVolume = formatPrice(takerBase)
		k.TakerBuyQuoteVolume = formatPrice(takerQuote)
		klines = append(klines, k)
	}
	if err := rows.Err(); err != nil {
		return nil, NewQueryError("klines", err)
	}

	return &QueryResponse{
		Klines:    klines,
		Total:     len(klines),
		QueryTime: time.Since(start),
	}, nil
}

// CloseSeries retrieves the close series for one symbol and interval.
func (d *DuckDBStore) CloseSeries(ctx context.Context, symbol, interval string, start, end time.Time) ([]int64, []float64, error) {
	resp, err := d.Query(ctx, QueryRequest{
		Symbol:   symbol,
		Interval: interval,
		Start:    start.UnixMilli(),
		End:      end.UnixMilli(),
	})
	if err != nil {
		return nil, nil, err
	}

	times := make([]int64, 0, len(resp.Klines))
	closes := make([]float64, 0, len(resp.Klines))
	for i := range resp.Klines {
		c, derr := resp.Klines[i].CloseDecimal()
		if derr != nil {
			return nil, nil, NewQueryError("klines", derr)
		}
		f, _ := c.Float64()
		times = append(times, resp.Klines[i].CloseTime)
		closes = append(closes, f)
	}
	return times, closes, nil
}

// Stats reports stored data volume.
func (d *DuckDBStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	row := d.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COUNT(DISTINCT symbol),
	       COALESCE(MIN(close_time), 0),
	       COALESCE(MAX(close_time), 0)
	FROM klines`)
	if err := row.Scan(&stats.TotalKlines, &stats.TotalSymbols, &stats.EarliestClose, &stats.LatestClose); err != nil {
		return nil, NewQueryError("klines", fmt.Errorf("failed to collect stats: %w", err))
	}
	return stats, nil
}

// HealthCheck verifies the database responds.
func (d *DuckDBStore) HealthCheck(ctx context.Context) error {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db == nil {
		return NewStorageError("health", "", fmt.Errorf("database connection is closed"))
	}

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return NewStorageError("health", "", err)
	}
	return nil
}

// Close shuts the database down.
func (d *DuckDBStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// formatPrice renders a stored double back into the string form the
// models carry, trimming to eight decimal places like the exchange does.
func formatPrice(v float64) string {
	return trimZeros(fmt.Sprintf("%.8f", v))
}

func trimZeros(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
