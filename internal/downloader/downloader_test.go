package downloader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnayoung/go-coint-lab/internal/archive"
	"github.com/johnayoung/go-coint-lab/internal/vision"
)

// stubClient scripts per-file outcomes keyed by URL path substring.
type stubClient struct {
	mu       sync.Mutex
	calls    []string
	notFound []string
	failing  []string
	existing []string
}

func (s *stubClient) Download(ctx context.Context, urlPath, destPath string) (vision.Outcome, error) {
	s.mu.Lock()
	s.calls = append(s.calls, urlPath)
	s.mu.Unlock()

	for _, frag := range s.notFound {
		if strings.Contains(urlPath, frag) {
			return 0, vision.ErrNotFound
		}
	}
	for _, frag := range s.failing {
		if strings.Contains(urlPath, frag) {
			return 0, fmt.Errorf("connection reset")
		}
	}
	for _, frag := range s.existing {
		if strings.Contains(urlPath, frag) {
			return vision.SkippedExists, nil
		}
	}
	return vision.Downloaded, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func klineRequest() Request {
	return Request{
		TradingType: archive.Spot,
		Kind:        archive.Klines,
		Period:      archive.Daily,
		Symbols:     []string{"BTCUSDT", "ETHUSDT"},
		Intervals:   []string{"1h"},
		Start:       day(2024, 3, 1),
		End:         day(2024, 3, 3),
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Request) {},
		},
		{
			name:    "no_symbols",
			mutate:  func(r *Request) { r.Symbols = nil },
			wantErr: "symbol",
		},
		{
			name:    "klines_without_intervals",
			mutate:  func(r *Request) { r.Intervals = nil },
			wantErr: "interval",
		},
		{
			name:    "missing_dates",
			mutate:  func(r *Request) { r.Start = time.Time{} },
			wantErr: "start and end",
		},
		{
			name:    "end_before_start",
			mutate:  func(r *Request) { r.End = r.Start.AddDate(0, 0, -1) },
			wantErr: "end date",
		},
		{
			name:    "bad_interval",
			mutate:  func(r *Request) { r.Intervals = []string{"7h"} },
			wantErr: "interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := klineRequest()
			tt.mutate(&req)

			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_TalliesOutcomes(t *testing.T) {
	stub := &stubClient{
		notFound: []string{"2024-03-01"}, // first day predates both listings
		existing: []string{"ETHUSDT-1h-2024-03-02"},
		failing:  []string{"BTCUSDT-1h-2024-03-03"},
	}
	dl := New(stub, t.TempDir(), nil)

	report, err := dl.Run(context.Background(), klineRequest())
	require.NoError(t, err)

	// 2 symbols x 3 days = 6 files.
	assert.Len(t, stub.calls, 6)
	assert.Equal(t, 6, report.Total())
	assert.Equal(t, 2, report.Missing)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Downloaded)
	assert.Equal(t, []string{"BTCUSDT-1h-2024-03-03.zip"}, report.FailedFiles)
	assert.NotEmpty(t, report.JobID)
}

func TestRun_ChecksumCompanions(t *testing.T) {
	stub := &stubClient{}
	dl := New(stub, t.TempDir(), nil)

	req := klineRequest()
	req.Symbols = []string{"BTCUSDT"}
	req.End = req.Start
	req.Checksum = true

	report, err := dl.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, stub.calls, 2)
	assert.True(t, strings.HasSuffix(stub.calls[1], ".CHECKSUM"))
	assert.Equal(t, 2, report.Downloaded)
}

func TestRun_MonthlyPeriodUsesMonthStamps(t *testing.T) {
	stub := &stubClient{}
	dl := New(stub, t.TempDir(), nil)

	req := klineRequest()
	req.Symbols = []string{"BTCUSDT"}
	req.Period = archive.Monthly
	req.Start = day(2024, 1, 15)
	req.End = day(2024, 3, 2)

	_, err := dl.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, stub.calls, 3)
	assert.Contains(t, stub.calls[0], "BTCUSDT-1h-2024-01.zip")
	assert.Contains(t, stub.calls[2], "BTCUSDT-1h-2024-03.zip")
}

func TestRun_CancelledContextStopsEarly(t *testing.T) {
	stub := &stubClient{}
	dl := New(stub, t.TempDir(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := dl.Run(ctx, klineRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Total())
}

func TestRun_InvalidRequestMakesNoCalls(t *testing.T) {
	stub := &stubClient{}
	dl := New(stub, t.TempDir(), nil)

	req := klineRequest()
	req.Symbols = nil

	_, err := dl.Run(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, stub.calls)
}
