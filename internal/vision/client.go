// Package vision provides the HTTP client for the Binance Vision public
// archive.
//
// The archive serves immutable zip files over plain HTTPS, so the client
// is a streaming downloader with idempotent semantics: a file already on
// disk is never re-fetched, a missing remote file (HTTP 404) is reported
// through a sentinel error the caller can treat as non-fatal, and
// transient failures are retried with exponential backoff behind a
// client-side rate limiter.
package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cheggaaa/pb"
	"golang.org/x/time/rate"
)

const (
	// Rate limiting configuration
	maxRequestsPerSecond = 5
	rateLimitBurst       = 1

	// Request configuration
	requestTimeout = 120 * time.Second
	userAgent      = "go-coint-lab/1.0"

	// Retry configuration
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
	retryMultiplier   = 2.0
	retryJitter       = 0.5
	maxRetryElapsed   = 2 * time.Minute

	// Health check configuration
	healthCheckTimeout = 5 * time.Second
)

// ErrNotFound is returned when the archive does not publish the requested
// file. Gaps in the archive are routine (delisted symbols, days before a
// listing), so callers should continue past this error.
var ErrNotFound = errors.New("archive file not found")

// Outcome describes what a Download call did.
type Outcome int

const (
	// Downloaded means the file was fetched and written to disk.
	Downloaded Outcome = iota
	// SkippedExists means the local file was already present.
	SkippedExists
)

// Client downloads archive files from data.binance.vision.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
	progress    bool

	// exchangeInfoURL, when set, overrides the per-market exchange info
	// endpoint used by ListSymbols.
	exchangeInfoURL string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBaseURL overrides the archive base URL. Used by tests to point the
// client at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithProgress toggles the terminal progress bar drawn during downloads.
func WithProgress(enabled bool) Option {
	return func(c *Client) { c.progress = enabled }
}

// WithExchangeInfoURL overrides the exchange info endpoint. Used by tests
// to point symbol listing at a local server.
func WithExchangeInfoURL(url string) Option {
	return func(c *Client) { c.exchangeInfoURL = url }
}

// WithRateLimit overrides the request rate cap, in requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(perSec), rateLimitBurst)
		}
	}
}

// NewClient creates an archive client with connection pooling, rate
// limiting and retry behavior configured for bulk historical downloads.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(maxRequestsPerSecond), rateLimitBurst),
		baseURL:     "https://data.binance.vision/",
		logger:      slog.Default(),
		progress:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches the archive file at urlPath (relative to the archive
// root) into destPath.
//
// If destPath already exists the download is skipped and SkippedExists is
// returned. Otherwise the body is streamed to a temporary file and renamed
// into place, so a cancelled or failed download never leaves a partial
// file at the final path. Returns ErrNotFound when the archive responds
// with HTTP 404.
func (c *Client) Download(ctx context.Context, urlPath, destPath string) (Outcome, error) {
	if _, err := os.Stat(destPath); err == nil {
		c.logger.Debug("file already exists, skipping", "path", destPath)
		return SkippedExists, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	url := c.baseURL + urlPath
	if err := c.fetchWithRetry(ctx, url, destPath); err != nil {
		return 0, err
	}
	return Downloaded, nil
}

// fetchWithRetry performs the GET with exponential backoff. 404 and other
// client errors are permanent; transport errors and 5xx are retried.
func (c *Client) fetchWithRetry(ctx context.Context, url, destPath string) error {
	backoffConfig := backoff.NewExponentialBackOff()
	backoffConfig.InitialInterval = initialRetryDelay
	backoffConfig.MaxInterval = maxRetryDelay
	backoffConfig.Multiplier = retryMultiplier
	backoffConfig.RandomizationFactor = retryJitter
	backoffConfig.MaxElapsedTime = maxRetryElapsed

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("client error %d", resp.StatusCode))
		}

		return c.streamToFile(resp, destPath)
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoffConfig, ctx)); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug("file not found in archive", "url", url)
			return ErrNotFound
		}
		return fmt.Errorf("download %s: %w", url, err)
	}
	return nil
}

// streamToFile writes the response body to a temp file next to destPath
// and renames it into place on success.
func (c *Client) streamToFile(resp *http.Response, destPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".part*")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var reader io.Reader = resp.Body
	var bar *pb.ProgressBar
	if c.progress && resp.ContentLength > 0 {
		bar = pb.New64(resp.ContentLength).SetUnits(pb.U_BYTES)
		bar.Prefix(filepath.Base(destPath))
		bar.Start()
		reader = bar.NewProxyReader(resp.Body)
	}

	written, err := io.Copy(tmp, reader)
	if bar != nil {
		bar.Finish()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Body read errors are worth another attempt.
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to move file into place: %w", err))
	}

	c.logger.Debug("downloaded archive file",
		"path", destPath,
		"bytes", written)
	return nil
}

// HealthCheck verifies the archive host is reachable. It issues a HEAD
// request against the archive root and accepts any non-5xx response.
func (c *Client) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(healthCtx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	return nil
}
