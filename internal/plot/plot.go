// Package plot renders assembled datasets and cointegration spreads as
// self-contained HTML charts via go-echarts.
package plot

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/johnayoung/go-coint-lab/internal/models"
)

const (
	chartWidth  = "1400px"
	chartHeight = "700px"
)

// Series is one named line on a chart.
type Series struct {
	Name   string
	Values []float64
}

// Renderer writes charts into an output directory.
type Renderer struct {
	outDir string
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing HTML files under outDir.
func NewRenderer(outDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{outDir: outDir, logger: logger}
}

// Panel is one chart on a stacked page: its own title, time axis and series.
type Panel struct {
	Title  string
	Times  []int64
	Series []Series
}

// Lines renders one or more series against a shared time axis and writes
// the chart to fileName inside the output directory. Returns the full
// path of the written file.
func (r *Renderer) Lines(title string, times []int64, series []Series, fileName string) (string, error) {
	line, err := lineChart(title, times, series)
	if err != nil {
		return "", err
	}
	return r.render(line, fileName)
}

// StackedLines renders one line chart per panel, stacked on a single HTML
// page. Panels may have independent time axes.
func (r *Renderer) StackedLines(pageTitle string, panels []Panel, fileName string) (string, error) {
	if len(panels) == 0 {
		return "", fmt.Errorf("no panels to plot")
	}

	page := components.NewPage()
	page.PageTitle = pageTitle
	page.SetLayout(components.PageFlexLayout)
	for _, p := range panels {
		line, err := lineChart(p.Title, p.Times, p.Series)
		if err != nil {
			return "", err
		}
		page.AddCharts(line)
	}
	return r.render(page, fileName)
}

func lineChart(title string, times []int64, series []Series) (*charts.Line, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series to plot")
	}
	for _, s := range series {
		if len(s.Values) != len(times) {
			return nil, fmt.Errorf("series %s has %d points, time axis has %d", s.Name, len(s.Values), len(times))
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	line.SetXAxis(formatTimes(times))
	for _, s := range series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Name, data,
			charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}))
	}

	return line, nil
}

// Candles renders a kline table as a candlestick chart. All klines must
// belong to one symbol and interval and be ordered by close time.
func (r *Renderer) Candles(title string, klines []models.Kline, fileName string) (string, error) {
	if len(klines) == 0 {
		return "", fmt.Errorf("no klines to plot")
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	times := make([]string, len(klines))
	data := make([]opts.KlineData, len(klines))
	for i := range klines {
		open, err := klines[i].OpenDecimal()
		if err != nil {
			return "", fmt.Errorf("kline %d: %w", i, err)
		}
		closePrice, err := klines[i].CloseDecimal()
		if err != nil {
			return "", fmt.Errorf("kline %d: %w", i, err)
		}
		low, err := klines[i].LowDecimal()
		if err != nil {
			return "", fmt.Errorf("kline %d: %w", i, err)
		}
		high, err := klines[i].HighDecimal()
		if err != nil {
			return "", fmt.Errorf("kline %d: %w", i, err)
		}

		openF, _ := open.Float64()
		closeF, _ := closePrice.Float64()
		lowF, _ := low.Float64()
		highF, _ := high.Float64()

		times[i] = formatTime(klines[i].CloseTime)
		// echarts candlestick order: open, close, low, high.
		data[i] = opts.KlineData{Value: [4]float64{openF, closeF, lowF, highF}}
	}

	kline.SetXAxis(times).AddSeries(klines[0].Symbol, data)
	return r.render(kline, fileName)
}

// Spread renders a cointegration spread, optionally alongside the
// underlying close series it was projected from.
func (r *Renderer) Spread(title string, times []int64, spread []float64, underlying []Series, fileName string) (string, error) {
	series := make([]Series, 0, len(underlying)+1)
	series = append(series, Series{Name: "spread", Values: spread})
	series = append(series, underlying...)
	return r.Lines(title, times, series, fileName)
}

type renderable interface {
	Render(w io.Writer) error
}

func (r *Renderer) render(chart renderable, fileName string) (string, error) {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(r.outDir, fileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}

	r.logger.Info("chart written", "path", path)
	return path, nil
}

func formatTimes(times []int64) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = formatTime(t)
	}
	return out
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
