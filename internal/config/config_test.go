package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_ManifestOverridesDefaults(t *testing.T) {
	manifest := `
data:
  base_dir: /srv/archive
  trading_type: um
  symbols: [BTCUSDT, ETHUSDT]
  intervals: [1h, 4h]
  start: "2024-01-01"
  end: "2024-03-31"
download:
  period: monthly
  checksum: true
coint:
  det_order: -1
  lags: 2
  confidence: 99
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "cointlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/archive", cfg.Data.BaseDir)
	assert.Equal(t, "um", cfg.Data.TradingType)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Data.Symbols)
	assert.Equal(t, "monthly", cfg.Download.Period)
	assert.True(t, cfg.Download.Checksum)
	assert.Equal(t, -1, cfg.Coint.DetOrder)
	assert.Equal(t, 2, cfg.Coint.Lags)
	assert.Equal(t, 99, cfg.Coint.Confidence)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep defaults.
	assert.Equal(t, "./data/klines.db", cfg.Storage.Path)
	assert.Equal(t, 1000, cfg.Storage.BatchSize)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	manifest := "data:\n  trading_type: spot\n  symbols: [BTCUSDT]\n"
	path := filepath.Join(t.TempDir(), "cointlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	t.Setenv("COINTLAB_TRADING_TYPE", "cm")
	t.Setenv("COINTLAB_SYMBOLS", "BTCUSD_PERP, ETHUSD_PERP")
	t.Setenv("COINTLAB_LOG_LEVEL", "warn")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "cm", cfg.Data.TradingType)
	assert.Equal(t, []string{"BTCUSD_PERP", "ETHUSD_PERP"}, cfg.Data.Symbols)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad_trading_type",
			mutate: func(c *Config) { c.Data.TradingType = "margin" },
			want:   "trading_type",
		},
		{
			name:   "bad_start_date",
			mutate: func(c *Config) { c.Data.Start = "01/02/2024" },
			want:   "data.start",
		},
		{
			name:   "bad_period",
			mutate: func(c *Config) { c.Download.Period = "weekly" },
			want:   "download.period",
		},
		{
			name:   "zero_rate",
			mutate: func(c *Config) { c.Download.RatePerSec = 0 },
			want:   "rate_per_sec",
		},
		{
			name:   "zero_batch",
			mutate: func(c *Config) { c.Storage.BatchSize = 0 },
			want:   "batch_size",
		},
		{
			name:   "bad_det_order",
			mutate: func(c *Config) { c.Coint.DetOrder = 5 },
			want:   "det_order",
		},
		{
			name:   "bad_confidence",
			mutate: func(c *Config) { c.Coint.Confidence = 80 },
			want:   "confidence",
		},
		{
			name:   "file_output_without_path",
			mutate: func(c *Config) { c.Logging.Output = "file" },
			want:   "file_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestDateRange(t *testing.T) {
	cfg := Default()
	cfg.Data.Start = "2024-01-01"
	cfg.Data.End = "2024-01-31"

	start, end, err := cfg.DateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), end)

	cfg.Data.End = "2023-12-01"
	_, _, err = cfg.DateRange()
	assert.ErrorContains(t, err, "before")
}

func TestDateRange_DefaultsToRecentWindow(t *testing.T) {
	cfg := Default()

	start, end, err := cfg.DateRange()
	require.NoError(t, err)
	assert.True(t, end.After(start))
	assert.True(t, end.Before(time.Now().UTC().Add(time.Hour)))
}
