// Cointegration research CLI for Binance Vision archive data.
//
// The tool downloads historical market data archives, assembles them
// into time-ordered datasets, persists klines in DuckDB, runs the
// Johansen cointegration test over baskets of symbols and renders the
// results as HTML charts.
//
// Usage:
//
//	cointlab download --symbols BTCUSDT,ETHUSDT --intervals 1h --start 2024-01-01 --end 2024-03-31
//	cointlab symbols --trading-type spot --quote USDT
//	cointlab ingest --symbols BTCUSDT,ETHUSDT --intervals 1h --start 2024-01-01 --end 2024-03-31
//	cointlab coint --symbols BTCUSDT,ETHUSDT,BNBUSDT --interval 1h --start 2024-01-01 --end 2024-03-31
//	cointlab plot --type candles --symbols BTCUSDT --interval 1h --start 2024-01-01 --end 2024-01-31
//
// For detailed help on any command, use: cointlab <command> --help
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/johnayoung/go-coint-lab/internal/archive"
	"github.com/johnayoung/go-coint-lab/internal/coint"
	"github.com/johnayoung/go-coint-lab/internal/config"
	"github.com/johnayoung/go-coint-lab/internal/dataset"
	"github.com/johnayoung/go-coint-lab/internal/downloader"
	"github.com/johnayoung/go-coint-lab/internal/logger"
	"github.com/johnayoung/go-coint-lab/internal/plot"
	"github.com/johnayoung/go-coint-lab/internal/storage"
	"github.com/johnayoung/go-coint-lab/internal/vision"
)

const (
	Version = "1.0.0"
	AppName = "cointlab"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0
	ExitUsageError  = 1
	ExitConfigError = 2
	ExitDataError   = 4
	ExitInterrupt   = 130
)

// CLI wires the application components behind the command handlers.
type CLI struct {
	config    *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "--version", "-v":
		fmt.Printf("%s version %s\n", AppName, Version)
		return
	case "--help", "-h", "help":
		if len(args) > 0 {
			printCommandHelp(args[0])
		} else {
			printUsage()
		}
		return
	}

	cli := &CLI{}
	if err := cli.initialize(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		os.Exit(ExitConfigError)
	}
	defer cli.logCloser.Close()

	var err error
	switch command {
	case "download":
		err = cli.handleDownload(ctx, args)
	case "symbols":
		err = cli.handleSymbols(ctx, args)
	case "ingest":
		err = cli.handleIngest(ctx, args)
	case "coint":
		err = cli.handleCoint(ctx, args)
	case "plot":
		err = cli.handlePlot(ctx, args)
	case "clean":
		err = cli.handleClean(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(ExitUsageError)
	}

	if err != nil {
		if ctx.Err() != nil {
			cli.logger.Error("interrupted", "command", command)
			os.Exit(ExitInterrupt)
		}
		cli.logger.Error("command failed", "command", command, "error", err)
		os.Exit(ExitDataError)
	}
}

// initialize loads configuration and builds the logger. The config path
// may be overridden with --config anywhere on the command line.
func (cli *CLI) initialize(args []string) error {
	configPath := os.Getenv("COINTLAB_CONFIG")
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--config" || args[i] == "-c" {
			configPath = args[i+1]
		}
	}
	if configPath == "" {
		if _, err := os.Stat("cointlab.yaml"); err == nil {
			configPath = "cointlab.yaml"
		}
	}

	cfg, err := config.Load(configPath, slog.Default())
	if err != nil {
		return err
	}
	cli.config = cfg

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	cli.logger = log
	cli.logCloser = closer
	slog.SetDefault(log)
	return nil
}

// commonFlags are shared by the dataset-oriented commands.
type commonFlags struct {
	Symbols     []string
	Intervals   []string
	Start       string
	End         string
	TradingType string
	Help        bool
}

func (cli *CLI) defaultedCommon() commonFlags {
	return commonFlags{
		Symbols:     cli.config.Data.Symbols,
		Intervals:   cli.config.Data.Intervals,
		Start:       cli.config.Data.Start,
		End:         cli.config.Data.End,
		TradingType: cli.config.Data.TradingType,
	}
}

// dateRange resolves the flag dates, falling back to the config range.
func (cli *CLI) dateRange(flags *commonFlags) (time.Time, time.Time, error) {
	cfg := *cli.config
	cfg.Data.Start = flags.Start
	cfg.Data.End = flags.End
	return cfg.DateRange()
}

func (cli *CLI) handleDownload(ctx context.Context, args []string) error {
	flags := cli.defaultedCommon()
	kind := string(archive.Klines)
	period := cli.config.Download.Period
	checksum := cli.config.Download.Checksum

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--symbols", "-s":
			if i+1 >= len(args) {
				return fmt.Errorf("--symbols requires a value")
			}
			i++
			flags.Symbols = splitList(args[i])
		case "--intervals", "-i":
			if i+1 >= len(args) {
				return fmt.Errorf("--intervals requires a value")
			}
			i++
			flags.Intervals = splitList(args[i])
		case "--kind", "-k":
			if i+1 >= len(args) {
				return fmt.Errorf("--kind requires a value")
			}
			i++
			kind = args[i]
		case "--period":
			if i+1 >= len(args) {
				return fmt.Errorf("--period requires a value")
			}
			i++
			period = args[i]
		case "--start":
			if i+1 >= len(args) {
				return fmt.Errorf("--start requires a value")
			}
			i++
			flags.Start = args[i]
		case "--end":
			if i+1 >= len(args) {
				return fmt.Errorf("--end requires a value")
			}
			i++
			flags.End = args[i]
		case "--trading-type", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("--trading-type requires a value")
			}
			i++
			flags.TradingType = args[i]
		case "--checksum":
			checksum = true
		case "--config", "-c":
			i++
		case "--help", "-h":
			printCommandHelp("download")
			return nil
		default:
			return fmt.Errorf("unknown flag %s", args[i])
		}
	}

	if len(flags.Symbols) == 0 {
		return fmt.Errorf("--symbols is required (or data.symbols in the config)")
	}

	start, end, err := cli.dateRange(&flags)
	if err != nil {
		return err
	}

	client := vision.NewClient(
		vision.WithLogger(cli.logger),
		vision.WithProgress(cli.config.Download.Progress),
		vision.WithRateLimit(cli.config.Download.RatePerSec),
	)
	dl := downloader.New(client, cli.config.Data.BaseDir, cli.logger)

	report, err := dl.Run(ctx, downloader.Request{
		TradingType: archive.TradingType(flags.TradingType),
		Kind:        archive.Kind(kind),
		Period:      archive.Period(period),
		Symbols:     flags.Symbols,
		Intervals:   flags.Intervals,
		Start:       start,
		End:         end,
		Checksum:    checksum,
	})
	if report != nil {
		fmt.Println(report.String())
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d files failed: %s", report.Failed, strings.Join(report.FailedFiles, ", "))
	}
	return nil
}

func (cli *CLI) handleSymbols(ctx context.Context, args []string) error {
	tradingType := cli.config.Data.TradingType
	quote := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--trading-type", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("--trading-type requires a value")
			}
			i++
			tradingType = args[i]
		case "--quote", "-q":
			if i+1 >= len(args) {
				return fmt.Errorf("--quote requires a value")
			}
			i++
			quote = strings.ToUpper(args[i])
		case "--config", "-c":
			i++
		case "--help", "-h":
			printCommandHelp("symbols")
			return nil
		default:
			return fmt.Errorf("unknown flag %s", args[i])
		}
	}

	client := vision.NewClient(vision.WithLogger(cli.logger), vision.WithProgress(false))
	symbols, err := client.ListSymbols(ctx, archive.TradingType(tradingType))
	if err != nil {
		return err
	}

	count := 0
	for _, s := range symbols {
		if quote != "" && !strings.HasSuffix(s, quote) {
			continue
		}
		fmt.Println(s)
		count++
	}
	cli.logger.Info("listed symbols", "trading_type", tradingType, "count", count)
	return nil
}

func (cli *CLI) handleIngest(ctx context.Context, args []string) error {
	flags := cli.defaultedCommon()

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--symbols", "-s":
			if i+1 >= len(args) {
				return fmt.Errorf("--symbols requires a value")
			}
			i++
			flags.Symbols = splitList(args[i])
		case "--intervals", "-i":
			if i+1 >= len(args) {
				return fmt.Errorf("--intervals requires a value")
			}
			i++
			flags.Intervals = splitList(args[i])
		case "--start":
			if i+1 >= len(args) {
				return fmt.Errorf("--start requires a value")
			}
			i++
			flags.Start = args[i]
		case "--end":
			if i+1 >= len(args) {
				return fmt.Errorf("--end requires a value")
			}
			i++
			flags.End = args[i]
		case "--trading-type", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("--trading-type requires a value")
			}
			i++
			flags.TradingType = args[i]
		case "--config", "-c":
			i++
		case "--help", "-h":
			printCommandHelp("ingest")
			return nil
		default:
			return fmt.Errorf("unknown flag %s", args[i])
		}
	}

	if len(flags.Symbols) == 0 {
		return fmt.Errorf("--symbols is required (or data.symbols in the config)")
	}

	start, end, err := cli.dateRange(&flags)
	if err != nil {
		return err
	}

	store, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	assembler := dataset.NewAssembler(cli.config.Data.BaseDir, cli.logger)
	symbolIntervals := make(map[string][]string, len(flags.Symbols))
	for _, s := range flags.Symbols {
		symbolIntervals[s] = flags.Intervals
	}

	table, err := assembler.Klines(ctx, dataset.KlineRequest{
		TradingType: archive.TradingType(flags.TradingType),
		Symbols:     symbolIntervals,
		Start:       start,
		End:         end,
	})
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("no kline archives found under %s; run download first", cli.config.Data.BaseDir)
	}

	batch := cli.config.Storage.BatchSize
	for lo := 0; lo < len(table.Rows); lo += batch {
		hi := lo + batch
		if hi > len(table.Rows) {
			hi = len(table.Rows)
		}
		if err := store.StoreBatch(ctx, table.Rows[lo:hi]); err != nil {
			return err
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d klines (store now holds %d rows across %d symbols)\n",
		len(table.Rows), stats.TotalKlines, stats.TotalSymbols)
	return nil
}

func (cli *CLI) handleCoint(ctx context.Context, args []string) error {
	flags := cli.defaultedCommon()
	interval := firstOr(cli.config.Data.Intervals, "1h")
	detOrder := cli.config.Coint.DetOrder
	lags := cli.config.Coint.Lags
	fromStore := false
	spreadOut := ""
	evecIndex := 0
	allEvecs := false
	withCloses := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--symbols", "-s":
			if i+1 >= len(args) {
				return fmt.Errorf("--symbols requires a value")
			}
			i++
			flags.Symbols = splitList(args[i])
		case "--interval", "-i":
			if i+1 >= len(args) {
				return fmt.Errorf("--interval requires a value")
			}
			i++
			interval = args[i]
		case "--start":
			if i+1 >= len(args) {
				return fmt.Errorf("--start requires a value")
			}
			i++
			flags.Start = args[i]
		case "--end":
			if i+1 >= len(args) {
				return fmt.Errorf("--end requires a value")
			}
			i++
			flags.End = args[i]
		case "--trading-type", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("--trading-type requires a value")
			}
			i++
			flags.TradingType = args[i]
		case "--det-order":
			if i+1 >= len(args) {
				return fmt.Errorf("--det-order requires a value")
			}
			i++
			if _, err := fmt.Sscanf(args[i], "%d", &detOrder); err != nil {
				return fmt.Errorf("invalid --det-order %q", args[i])
			}
		case "--lags":
			if i+1 >= len(args) {
				return fmt.Errorf("--lags requires a value")
			}
			i++
			if _, err := fmt.Sscanf(args[i], "%d", &lags); err != nil {
				return fmt.Errorf("invalid --lags %q", args[i])
			}
		case "--from-store":
			fromStore = true
		case "--spread-plot":
			if i+1 >= len(args) {
				return fmt.Errorf("--spread-plot requires a value")
			}
			i++
			spreadOut = args[i]
		case "--evec":
			if i+1 >= len(args) {
				return fmt.Errorf("--evec requires a value")
			}
			i++
			if _, err := fmt.Sscanf(args[i], "%d", &evecIndex); err != nil {
				return fmt.Errorf("invalid --evec %q", args[i])
			}
		case "--all-evecs":
			allEvecs = true
		case "--with-closes":
			withCloses = true
		case "--config", "-c":
			i++
		case "--help", "-h":
			printCommandHelp("coint")
			return nil
		default:
			return fmt.Errorf("unknown flag %s", args[i])
		}
	}

	if len(flags.Symbols) < 2 {
		return fmt.Errorf("--symbols needs at least two symbols")
	}

	start, end, err := cli.dateRange(&flags)
	if err != nil {
		return err
	}

	panel, err := cli.buildPanel(ctx, &flags, interval, start, end, fromStore)
	if err != nil {
		return err
	}

	cli.logger.Info("running johansen test",
		"symbols", strings.Join(flags.Symbols, ","),
		"interval", interval,
		"observations", panel.Rows(),
		"det_order", detOrder,
		"lags", lags)

	result, err := coint.Johansen(panel.Data, detOrder, lags)
	if err != nil {
		return err
	}
	if !result.HasCriticalValues() {
		cli.logger.Warn("no critical value table for this det order; statistics reported without thresholds",
			"det_order", detOrder)
	}

	fmt.Print(result.Summary(flags.Symbols))

	if spreadOut != "" {
		renderer := plot.NewRenderer(cli.config.Plot.OutDir, cli.logger)
		label := fmt.Sprintf("%s (%s)", strings.Join(flags.Symbols, " / "), interval)

		indexes := []int{evecIndex}
		if allEvecs {
			indexes = make([]int, result.NumSeries())
			for i := range indexes {
				indexes[i] = i
			}
		}

		panels := make([]plot.Panel, 0, len(indexes)+1)
		for _, idx := range indexes {
			spread, err := result.Spread(panel.Data, idx)
			if err != nil {
				return err
			}
			panels = append(panels, plot.Panel{
				Title:  fmt.Sprintf("Spread (eigenvector %d): %s", idx, label),
				Times:  panel.Times,
				Series: []plot.Series{{Name: fmt.Sprintf("spread[%d]", idx), Values: spread}},
			})
		}
		if withCloses {
			closes := make([]plot.Series, len(flags.Symbols))
			for i, symbol := range flags.Symbols {
				closes[i] = plot.Series{Name: symbol, Values: panel.Column(i)}
			}
			panels = append(panels, plot.Panel{
				Title:  "Close prices: " + label,
				Times:  panel.Times,
				Series: closes,
			})
		}

		var path string
		if len(panels) == 1 {
			path, err = renderer.Spread(panels[0].Title, panel.Times, panels[0].Series[0].Values, nil, spreadOut)
		} else {
			path, err = renderer.StackedLines("Cointegration spread: "+label, panels, spreadOut)
		}
		if err != nil {
			return err
		}
		fmt.Printf("spread chart written to %s\n", path)
	}
	return nil
}

// buildPanel assembles the aligned close matrix either from the DuckDB
// store or directly from the downloaded archive files.
func (cli *CLI) buildPanel(ctx context.Context, flags *commonFlags, interval string, start, end time.Time, fromStore bool) (*dataset.ClosePanel, error) {
	if !fromStore {
		assembler := dataset.NewAssembler(cli.config.Data.BaseDir, cli.logger)
		return assembler.ClosePanel(ctx, archive.TradingType(flags.TradingType), flags.Symbols, interval, start, end)
	}

	store, err := cli.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	series := make([][]float64, len(flags.Symbols))
	var times []int64
	minLen := -1
	for i, symbol := range flags.Symbols {
		ts, closes, err := store.CloseSeries(ctx, symbol, interval, start, end.Add(24*time.Hour))
		if err != nil {
			return nil, err
		}
		if len(closes) == 0 {
			return nil, fmt.Errorf("no stored klines for %s %s; run ingest first", symbol, interval)
		}
		series[i] = closes
		if i == 0 {
			times = ts
		}
		if minLen < 0 || len(closes) < minLen {
			minLen = len(closes)
		}
	}

	panel := &dataset.ClosePanel{
		Symbols:  flags.Symbols,
		Interval: interval,
		Times:    times[:minLen],
		Data:     make([][]float64, minLen),
	}
	for t := 0; t < minLen; t++ {
		row := make([]float64, len(flags.Symbols))
		for i := range flags.Symbols {
			row[i] = series[i][t]
		}
		panel.Data[t] = row
	}
	return panel, nil
}

func (cli *CLI) handlePlot(ctx context.Context, args []string) error {
	flags := cli.defaultedCommon()
	interval := firstOr(cli.config.Data.Intervals, "1h")
	plotType := "line"
	fileName := ""
	limit := 0

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--type":
			if i+1 >= len(args) {
				return fmt.Errorf("--type requires a value")
			}
			i++
			plotType = args[i]
		case "--symbols", "-s":
			if i+1 >= len(args) {
				return fmt.Errorf("--symbols requires a value")
			}
			i++
			flags.Symbols = splitList(args[i])
		case "--interval", "-i":
			if i+1 >= len(args) {
				return fmt.Errorf("--interval requires a value")
			}
			i++
			interval = args[i]
		case "--start":
			if i+1 >= len(args) {
				return fmt.Errorf("--start requires a value")
			}
			i++
			flags.Start = args[i]
		case "--end":
			if i+1 >= len(args) {
				return fmt.Errorf("--end requires a value")
			}
			i++
			flags.End = args[i]
		case "--trading-type", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("--trading-type requires a value")
			}
			i++
			flags.TradingType = args[i]
		case "--out", "-o":
			if i+1 >= len(args) {
				return fmt.Errorf("--out requires a value")
			}
			i++
			fileName = args[i]
		case "--limit":
			if i+1 >= len(args) {
				return fmt.Errorf("--limit requires a value")
			}
			i++
			if _, err := fmt.Sscanf(args[i], "%d", &limit); err != nil {
				return fmt.Errorf("invalid --limit %q", args[i])
			}
		case "--config", "-c":
			i++
		case "--help", "-h":
			printCommandHelp("plot")
			return nil
		default:
			return fmt.Errorf("unknown flag %s", args[i])
		}
	}

	if len(flags.Symbols) == 0 {
		return fmt.Errorf("--symbols is required (or data.symbols in the config)")
	}

	start, end, err := cli.dateRange(&flags)
	if err != nil {
		return err
	}

	assembler := dataset.NewAssembler(cli.config.Data.BaseDir, cli.logger)
	renderer := plot.NewRenderer(cli.config.Plot.OutDir, cli.logger)
	tradingType := archive.TradingType(flags.TradingType)

	switch plotType {
	case "line":
		table, err := assembler.Trades(ctx, dataset.TradeRequest{
			TradingType: tradingType,
			Symbols:     flags.Symbols,
			Start:       start,
			End:         end,
			Limit:       limit,
		})
		if err != nil {
			return err
		}
		if len(table.Rows) == 0 {
			return fmt.Errorf("no trade archives found under %s; run download --kind trades first", cli.config.Data.BaseDir)
		}

		if fileName == "" {
			fileName = fmt.Sprintf("trades_%s.html", strings.Join(flags.Symbols, "_"))
		}
		title := fmt.Sprintf("Trade prices (10s buckets): %s", strings.Join(flags.Symbols, ", "))

		// Each symbol keeps its own bucket grid, so multi-symbol pages
		// stack one chart per symbol.
		if len(flags.Symbols) == 1 {
			times, prices := table.PriceSeries(flags.Symbols[0])
			path, err := renderer.Lines(title, times,
				[]plot.Series{{Name: flags.Symbols[0], Values: prices}}, fileName)
			if err != nil {
				return err
			}
			fmt.Printf("chart written to %s\n", path)
			return nil
		}

		panels := make([]plot.Panel, 0, len(flags.Symbols))
		for _, symbol := range flags.Symbols {
			times, prices := table.PriceSeries(symbol)
			panels = append(panels, plot.Panel{
				Title:  symbol + " trade prices (10s buckets)",
				Times:  times,
				Series: []plot.Series{{Name: symbol, Values: prices}},
			})
		}
		path, err := renderer.StackedLines(title, panels, fileName)
		if err != nil {
			return err
		}
		fmt.Printf("chart written to %s\n", path)
		return nil

	case "candles":
		if len(flags.Symbols) != 1 {
			return fmt.Errorf("--type candles plots exactly one symbol")
		}
		symbol := flags.Symbols[0]

		table, err := assembler.Klines(ctx, dataset.KlineRequest{
			TradingType: tradingType,
			Symbols:     map[string][]string{symbol: {interval}},
			Start:       start,
			End:         end,
		})
		if err != nil {
			return err
		}
		if len(table.Rows) == 0 {
			return fmt.Errorf("no kline archives found under %s; run download first", cli.config.Data.BaseDir)
		}

		if fileName == "" {
			fileName = fmt.Sprintf("candles_%s_%s.html", symbol, interval)
		}
		title := fmt.Sprintf("%s %s candles", symbol, interval)
		path, err := renderer.Candles(title, table.Rows, fileName)
		if err != nil {
			return err
		}
		fmt.Printf("chart written to %s\n", path)
		return nil

	case "closes":
		panel, err := assembler.ClosePanel(ctx, tradingType, flags.Symbols, interval, start, end)
		if err != nil {
			return err
		}
		series := make([]plot.Series, len(flags.Symbols))
		for i, symbol := range flags.Symbols {
			series[i] = plot.Series{Name: symbol, Values: panel.Column(i)}
		}
		if fileName == "" {
			fileName = fmt.Sprintf("closes_%s_%s.html", strings.Join(flags.Symbols, "_"), interval)
		}
		title := fmt.Sprintf("Close prices (%s): %s", interval, strings.Join(flags.Symbols, ", "))
		path, err := renderer.Lines(title, panel.Times, series, fileName)
		if err != nil {
			return err
		}
		fmt.Printf("chart written to %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown plot type %q (want line, candles or closes)", plotType)
	}
}

func (cli *CLI) handleClean(ctx context.Context, args []string) error {
	removeData := false
	removeDB := false
	removePlots := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--data":
			removeData = true
		case "--db":
			removeDB = true
		case "--plots":
			removePlots = true
		case "--all":
			removeData, removeDB, removePlots = true, true, true
		case "--config", "-c":
			i++
		case "--help", "-h":
			printCommandHelp("clean")
			return nil
		default:
			return fmt.Errorf("unknown flag %s", args[i])
		}
	}

	if !removeData && !removeDB && !removePlots {
		return fmt.Errorf("nothing selected; pass --data, --db, --plots or --all")
	}

	if removeDB {
		if err := os.Remove(cli.config.Storage.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove database: %w", err)
		}
		cli.logger.Info("removed database", "path", cli.config.Storage.Path)
	}
	if removePlots {
		if err := os.RemoveAll(cli.config.Plot.OutDir); err != nil {
			return fmt.Errorf("failed to remove plots: %w", err)
		}
		cli.logger.Info("removed plots", "path", cli.config.Plot.OutDir)
	}
	if removeData {
		if err := os.RemoveAll(cli.config.Data.BaseDir); err != nil {
			return fmt.Errorf("failed to remove data: %w", err)
		}
		cli.logger.Info("removed downloaded data", "path", cli.config.Data.BaseDir)
	}
	return nil
}

func (cli *CLI) openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.NewDuckDBStore(cli.config.Storage.Path, cli.logger)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
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

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}

func printUsage() {
	fmt.Printf(`%s - Binance Vision cointegration research CLI v%s

USAGE:
    %s <command> [options]

COMMANDS:
    download    Download historical archive files (klines, trades, aggTrades)
    symbols     List tradable symbols for a market segment
    ingest      Parse downloaded kline archives into the DuckDB store
    coint       Run the Johansen cointegration test over a basket of symbols
    plot        Render datasets as HTML charts
    clean       Remove downloaded data, the database, or rendered plots

GLOBAL OPTIONS:
    --config, -c <path>   Config manifest (default: cointlab.yaml if present)
    --version, -v         Print version
    --help, -h            Show this help

Run '%s <command> --help' for command-specific options.
`, AppName, Version, AppName, AppName)
}

func printCommandHelp(command string) {
	switch command {
	case "download":
		fmt.Printf(`%s download - Download historical archive files

USAGE:
    %s download [options]

OPTIONS:
    --symbols, -s <list>       Comma-separated symbols (e.g. BTCUSDT,ETHUSDT)
    --intervals, -i <list>     Kline intervals (e.g. 1h,4h); ignored for trades
    --kind, -k <kind>          klines, trades or aggTrades (default: klines)
    --period <period>          daily or monthly (default from config)
    --start <date>             Start date YYYY-MM-DD
    --end <date>               End date YYYY-MM-DD (inclusive)
    --trading-type, -t <type>  spot, um or cm (default from config)
    --checksum                 Also download .CHECKSUM companions

Files already on disk are skipped; files the archive never published are
counted as missing and do not fail the run.
`, AppName, AppName)
	case "symbols":
		fmt.Printf(`%s symbols - List tradable symbols

USAGE:
    %s symbols [options]

OPTIONS:
    --trading-type, -t <type>  spot, um or cm (default from config)
    --quote, -q <asset>        Only symbols quoted in this asset (e.g. USDT)
`, AppName, AppName)
	case "ingest":
		fmt.Printf(`%s ingest - Load downloaded kline archives into DuckDB

USAGE:
    %s ingest [options]

OPTIONS:
    --symbols, -s <list>       Comma-separated symbols
    --intervals, -i <list>     Kline intervals
    --start <date>             Start date YYYY-MM-DD
    --end <date>               End date YYYY-MM-DD (inclusive)
    --trading-type, -t <type>  spot, um or cm

Re-ingesting a range replaces previously stored rows for it.
`, AppName, AppName)
	case "coint":
		fmt.Printf(`%s coint - Johansen cointegration test

USAGE:
    %s coint --symbols BTCUSDT,ETHUSDT,BNBUSDT [options]

OPTIONS:
    --symbols, -s <list>       Two or more symbols forming the basket
    --interval, -i <interval>  Kline interval for the close panel
    --start <date>             Start date YYYY-MM-DD
    --end <date>               End date YYYY-MM-DD (inclusive)
    --det-order <n>            Deterministic term: -1, 0 or 1 (default from config)
    --lags <n>                 Lagged differences in the VECM (default from config)
    --from-store               Read closes from DuckDB instead of archive files
    --spread-plot <file>       Also render the spread chart as HTML
    --evec <n>                 Eigenvector to plot (default 0)
    --all-evecs                Plot every eigenvector's spread, stacked
    --with-closes              Stack the underlying close series below the spread
`, AppName, AppName)
	case "plot":
		fmt.Printf(`%s plot - Render datasets as HTML charts

USAGE:
    %s plot --type <line|candles|closes> [options]

OPTIONS:
    --type <type>              line (10s trade buckets), candles, or closes
    --symbols, -s <list>       Symbols to plot (candles takes exactly one)
    --interval, -i <interval>  Kline interval for candles and closes
    --start <date>             Start date YYYY-MM-DD
    --end <date>               End date YYYY-MM-DD (inclusive)
    --limit <n>                Max trade rows read per archive file
    --out, -o <file>           Output file name inside the plot directory
`, AppName, AppName)
	case "clean":
		fmt.Printf(`%s clean - Remove generated artifacts

USAGE:
    %s clean [--data] [--db] [--plots] [--all]
`, AppName, AppName)
	default:
		fmt.Fprintf(os.Stderr, "no help for unknown command %q\n", command)
		printUsage()
	}
}
