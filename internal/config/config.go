// Package config loads the research manifest that drives downloads,
// ingestion and the cointegration workflow. Configuration merges three
// sources in priority order: environment variables, the YAML manifest,
// and built-in defaults.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/johnayoung/go-coint-lab/internal/archive"
)

// Config is the complete application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Download DownloadConfig `yaml:"download"`
	Storage  StorageConfig  `yaml:"storage"`
	Coint    CointConfig    `yaml:"coint"`
	Plot     PlotConfig     `yaml:"plot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig describes the dataset the workflow operates on.
type DataConfig struct {
	// BaseDir is the local mirror of downloaded archive files.
	BaseDir string `yaml:"base_dir"`

	// TradingType selects the market segment: spot, um or cm.
	TradingType string `yaml:"trading_type"`

	// Symbols are the trading pairs under study.
	Symbols []string `yaml:"symbols"`

	// Intervals are the kline intervals to download and ingest.
	Intervals []string `yaml:"intervals"`

	// Start and End bound the date range, inclusive, as YYYY-MM-DD.
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// DownloadConfig tunes the archive fetcher.
type DownloadConfig struct {
	// Period selects daily or monthly archive files.
	Period string `yaml:"period"`

	// Checksum also fetches each file's .CHECKSUM companion.
	Checksum bool `yaml:"checksum"`

	// RatePerSec caps request throughput against the archive host.
	RatePerSec float64 `yaml:"rate_per_sec"`

	// Progress draws a per-file progress bar on the terminal.
	Progress bool `yaml:"progress"`
}

// StorageConfig configures the DuckDB store.
type StorageConfig struct {
	// Path is the database file, or ":memory:".
	Path string `yaml:"path"`

	// BatchSize is the bulk insert batch size.
	BatchSize int `yaml:"batch_size"`
}

// CointConfig parameterizes the Johansen test.
type CointConfig struct {
	// DetOrder is the deterministic term: -1 none, 0 constant, 1 trend.
	DetOrder int `yaml:"det_order"`

	// Lags is the number of lagged differences in the VECM.
	Lags int `yaml:"lags"`

	// Confidence selects the critical value column: 90, 95 or 99.
	Confidence int `yaml:"confidence"`
}

// PlotConfig configures chart output.
type PlotConfig struct {
	// OutDir receives the rendered HTML files.
	OutDir string `yaml:"out_dir"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr, file

	// File rotation, used when Output is "file".
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			BaseDir:     "./data",
			TradingType: "spot",
			Intervals:   []string{"1h"},
		},
		Download: DownloadConfig{
			Period:     "daily",
			Checksum:   false,
			RatePerSec: 8,
			Progress:   true,
		},
		Storage: StorageConfig{
			Path:      "./data/klines.db",
			BatchSize: 1000,
		},
		Coint: CointConfig{
			DetOrder:   0,
			Lags:       3,
			Confidence: 95,
		},
		Plot: PlotConfig{
			OutDir: "./plots",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load reads the manifest at path, layered over the defaults and under
// environment overrides. An empty path skips the file and loads defaults
// plus environment only.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"path", path,
		"symbols", len(cfg.Data.Symbols),
		"trading_type", cfg.Data.TradingType)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

// loadEnv applies COINTLAB_-prefixed environment overrides for the
// settings that change between machines.
func loadEnv(cfg *Config) {
	if v := os.Getenv("COINTLAB_DATA_DIR"); v != "" {
		cfg.Data.BaseDir = v
	}
	if v := os.Getenv("COINTLAB_TRADING_TYPE"); v != "" {
		cfg.Data.TradingType = v
	}
	if v := os.Getenv("COINTLAB_SYMBOLS"); v != "" {
		cfg.Data.Symbols = splitList(v)
	}
	if v := os.Getenv("COINTLAB_INTERVALS"); v != "" {
		cfg.Data.Intervals = splitList(v)
	}
	if v := os.Getenv("COINTLAB_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("COINTLAB_PLOT_DIR"); v != "" {
		cfg.Plot.OutDir = v
	}
	if v := os.Getenv("COINTLAB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COINTLAB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("COINTLAB_RATE_PER_SEC"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Download.RatePerSec = rate
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the merged configuration for consistency.
func (c *Config) Validate() error {
	var problems []string

	switch archive.TradingType(c.Data.TradingType) {
	case archive.Spot, archive.USDMFutures, archive.CoinMFutures:
	default:
		problems = append(problems, "data.trading_type must be one of: spot, um, cm")
	}
	if c.Data.BaseDir == "" {
		problems = append(problems, "data.base_dir is required")
	}
	if c.Data.Start != "" {
		if _, err := time.Parse(archive.DateLayout, c.Data.Start); err != nil {
			problems = append(problems, "data.start is not a valid YYYY-MM-DD date")
		}
	}
	if c.Data.End != "" {
		if _, err := time.Parse(archive.DateLayout, c.Data.End); err != nil {
			problems = append(problems, "data.end is not a valid YYYY-MM-DD date")
		}
	}

	switch archive.Period(c.Download.Period) {
	case archive.Daily, archive.Monthly:
	default:
		problems = append(problems, "download.period must be daily or monthly")
	}
	if c.Download.RatePerSec <= 0 {
		problems = append(problems, "download.rate_per_sec must be greater than 0")
	}

	if c.Storage.Path == "" {
		problems = append(problems, "storage.path is required")
	}
	if c.Storage.BatchSize <= 0 {
		problems = append(problems, "storage.batch_size must be greater than 0")
	}

	if c.Coint.DetOrder < -1 || c.Coint.DetOrder > 1 {
		problems = append(problems, "coint.det_order must be -1, 0 or 1")
	}
	if c.Coint.Lags < 0 {
		problems = append(problems, "coint.lags cannot be negative")
	}
	switch c.Coint.Confidence {
	case 90, 95, 99:
	default:
		problems = append(problems, "coint.confidence must be 90, 95 or 99")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		problems = append(problems, "logging.format must be json or text")
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file":
	default:
		problems = append(problems, "logging.output must be one of: stdout, stderr, file")
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		problems = append(problems, "logging.file_path is required when logging.output is file")
	}

	if len(problems) > 0 {
		return errors.Errorf("configuration validation errors:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// DateRange parses the configured start and end dates. Missing dates
// default to the last 30 full days.
func (c *Config) DateRange() (start, end time.Time, err error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start = now.AddDate(0, 0, -30)
	end = now.AddDate(0, 0, -1)

	if c.Data.Start != "" {
		start, err = time.Parse(archive.DateLayout, c.Data.Start)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "invalid data.start")
		}
	}
	if c.Data.End != "" {
		end, err = time.Parse(archive.DateLayout, c.Data.End)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "invalid data.end")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("data.end is before data.start")
	}
	return start, end, nil
}
