// Package downloader drives bulk retrieval of Binance Vision archives.
//
// A single Run enumerates symbols x intervals x dates, resolves each
// archive file through the archive package and fetches it through the
// vision client. Individual files failing is expected operation: files
// the archive never published are counted as missing, files already on
// disk are counted as skipped, and only the summary report decides
// whether the run as a whole was useful.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/johnayoung/go-coint-lab/internal/archive"
	"github.com/johnayoung/go-coint-lab/internal/vision"
)

// Client is the downloader's view of the archive HTTP client.
type Client interface {
	Download(ctx context.Context, urlPath, destPath string) (vision.Outcome, error)
}

// Request describes one bulk download job.
type Request struct {
	// TradingType selects the market segment (spot, um, cm).
	TradingType archive.TradingType

	// Kind selects the market-data product (klines, trades, aggTrades).
	Kind archive.Kind

	// Period selects daily or monthly archives.
	Period archive.Period

	// Symbols lists the symbols to download.
	Symbols []string

	// Intervals lists the kline intervals to download. Ignored for
	// trades and aggTrades.
	Intervals []string

	// Start and End bound the date range, inclusive on both ends.
	Start time.Time
	End   time.Time

	// Checksum also downloads each archive's .CHECKSUM companion.
	Checksum bool
}

// Validate checks the request before any network traffic happens.
func (r *Request) Validate() error {
	if len(r.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if r.Kind == archive.Klines && len(r.Intervals) == 0 {
		return fmt.Errorf("at least one interval is required for klines")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end date cannot be before start date")
	}

	// Probe one spec per combination so enum errors surface here rather
	// than mid-run.
	for _, spec := range r.specs() {
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// specs expands the request into one archive spec per symbol x interval.
func (r *Request) specs() []archive.Spec {
	var specs []archive.Spec
	for _, symbol := range r.Symbols {
		if r.Kind == archive.Klines {
			for _, interval := range r.Intervals {
				specs = append(specs, archive.Spec{
					TradingType: r.TradingType,
					Kind:        r.Kind,
					Period:      r.Period,
					Symbol:      symbol,
					Interval:    interval,
				})
			}
			continue
		}
		specs = append(specs, archive.Spec{
			TradingType: r.TradingType,
			Kind:        r.Kind,
			Period:      r.Period,
			Symbol:      symbol,
		})
	}
	return specs
}

// dates returns the per-file date stamps for the request's period.
func (r *Request) dates() []time.Time {
	if r.Period == archive.Monthly {
		return archive.MonthRange(r.Start, r.End)
	}
	return archive.DayRange(r.Start, r.End)
}

// Report summarizes a bulk download run.
type Report struct {
	// JobID uniquely identifies the run in logs.
	JobID string

	// Downloaded counts files fetched over the network.
	Downloaded int

	// Skipped counts files already present on disk.
	Skipped int

	// Missing counts files the archive does not publish (HTTP 404).
	Missing int

	// Failed counts files that errored after retries.
	Failed int

	// FailedFiles lists the archive file names that failed.
	FailedFiles []string

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Total returns the number of files the run attempted.
func (r *Report) Total() int {
	return r.Downloaded + r.Skipped + r.Missing + r.Failed
}

// String returns a one-line summary suitable for CLI output.
func (r *Report) String() string {
	return fmt.Sprintf("downloaded %d, skipped %d, missing %d, failed %d (%d files in %s)",
		r.Downloaded, r.Skipped, r.Missing, r.Failed, r.Total(), r.Duration.Round(time.Millisecond))
}

// Downloader fetches archive files for whole symbol/interval/date grids.
type Downloader struct {
	client  Client
	baseDir string
	logger  *slog.Logger
}

// New creates a Downloader storing files under baseDir.
func New(client Client, baseDir string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		client:  client,
		baseDir: baseDir,
		logger:  logger,
	}
}

// Run executes the bulk download described by req.
//
// Files are fetched sequentially in symbol, interval, date order. A
// missing or failed file never aborts the run; only context cancellation
// does, in which case the partial report is returned alongside the
// context error.
func (d *Downloader) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid download request: %w", err)
	}

	report := &Report{JobID: uuid.NewString()}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
	}()

	specs := req.specs()
	dates := req.dates()

	d.logger.Info("starting bulk download",
		"job_id", report.JobID,
		"kind", req.Kind,
		"period", req.Period,
		"symbols", len(req.Symbols),
		"files", len(specs)*len(dates))

	for _, spec := range specs {
		logger := d.logger.With(
			"job_id", report.JobID,
			"symbol", spec.Symbol,
			"interval", spec.Interval)

		for _, date := range dates {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			d.fetchOne(ctx, spec, spec.FileName(date), date, report, logger)
			if req.Checksum {
				d.fetchOne(ctx, spec, spec.ChecksumFileName(date), date, report, logger)
			}
		}
	}

	d.logger.Info("bulk download finished",
		"job_id", report.JobID,
		"downloaded", report.Downloaded,
		"skipped", report.Skipped,
		"missing", report.Missing,
		"failed", report.Failed)

	return report, nil
}

// fetchOne downloads a single archive file and tallies the outcome.
func (d *Downloader) fetchOne(ctx context.Context, spec archive.Spec, fileName string, date time.Time, report *Report, logger *slog.Logger) {
	urlPath := spec.Dir() + fileName
	destPath := spec.LocalPath(d.baseDir, date)
	if fileName != spec.FileName(date) {
		// Checksum companion lives next to the archive file.
		destPath = destPath + ".CHECKSUM"
	}

	outcome, err := d.client.Download(ctx, urlPath, destPath)
	switch {
	case errors.Is(err, vision.ErrNotFound):
		report.Missing++
		logger.Debug("archive file not published", "file", fileName)
	case err != nil:
		report.Failed++
		report.FailedFiles = append(report.FailedFiles, fileName)
		logger.Warn("archive file download failed", "file", fileName, "error", err)
	case outcome == vision.SkippedExists:
		report.Skipped++
	default:
		report.Downloaded++
	}
}
