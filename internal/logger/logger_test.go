package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnayoung/go-coint-lab/internal/config"
)

func TestNew_StderrText(t *testing.T) {
	log, closer, err := New(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()

	assert.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestNew_FileOutputRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cointlab.log")
	log, closer, err := New(config.LoggingConfig{
		Level:      "debug",
		Format:     "json",
		Output:     "file",
		FilePath:   path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	})
	require.NoError(t, err)

	log.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNew_Errors(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "info", Format: "text", Output: "file"})
	assert.ErrorContains(t, err, "file path")

	_, _, err = New(config.LoggingConfig{Level: "loud", Format: "text", Output: "stderr"})
	assert.ErrorContains(t, err, "log level")

	_, _, err = New(config.LoggingConfig{Level: "info", Format: "xml", Output: "stderr"})
	assert.ErrorContains(t, err, "log format")

	_, _, err = New(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	assert.ErrorContains(t, err, "log output")
}
