// Package storage persists assembled kline datasets in DuckDB so research
// queries do not re-parse thousands of zip archives on every run.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/johnayoung/go-coint-lab/internal/models"
)

// KlineStorer handles kline persistence.
type KlineStorer interface {
	// StoreBatch performs bulk storage of klines. Rows already present
	// (same symbol, interval and open time) are replaced.
	StoreBatch(ctx context.Context, klines []models.Kline) error
}

// KlineReader handles kline retrieval.
type KlineReader interface {
	// Query retrieves klines matching the request, ordered by close time.
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)

	// CloseSeries retrieves the close-time/close-price series for one
	// symbol and interval, ordered by close time.
	CloseSeries(ctx context.Context, symbol, interval string, start, end time.Time) ([]int64, []float64, error)
}

// Manager handles the storage lifecycle.
type Manager interface {
	// Initialize creates the schema. Safe to call repeatedly.
	Initialize(ctx context.Context) error

	// Close shuts the backend down; the store is unusable afterwards.
	Close() error

	// Stats reports data volume for monitoring.
	Stats(ctx context.Context) (*Stats, error)

	// HealthCheck verifies the backend responds.
	HealthCheck(ctx context.Context) error
}

// Store combines every storage capability the toolkit needs.
type Store interface {
	KlineStorer
	KlineReader
	Manager
}

// QueryRequest selects stored klines.
type QueryRequest struct {
	Symbol   string
	Interval string

	// Start and End bound the close time in epoch milliseconds. Zero
	// means unbounded on that side.
	Start int64
	End   int64

	// Limit caps the result size. Zero means no limit.
	Limit int
}

// QueryResponse holds query results and timing.
type QueryResponse struct {
	Klines    []models.Kline
	Total     int
	QueryTime time.Duration
}

// Stats reports stored data volume.
type Stats struct {
	TotalKlines   int64
	TotalSymbols  int
	EarliestClose int64
	LatestClose   int64
}

// StorageError wraps a failed storage operation with its context.
type StorageError struct {
	Operation string
	Table     string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage operation %s on table %s failed: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError with the provided details.
func NewStorageError(operation, table string, err error) *StorageError {
	return &StorageError{Operation: operation, Table: table, Err: err}
}

// NewInsertError creates a StorageError for insert operations.
func NewInsertError(table string, err error) *StorageError {
	return NewStorageError("insert", table, err)
}

// NewQueryError creates a StorageError for query operations.
func NewQueryError(table string, err error) *StorageError {
	return NewStorageError("query", table, err)
}
