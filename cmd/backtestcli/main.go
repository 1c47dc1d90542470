// Command backtestcli is the thin shell around the BacktestDriver (spec
// §6): it loads configuration, reads a historical event file, replays it,
// and writes the resulting report to a set of CSV files.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/krish567366/submicro-execution-engine/internal/backtest"
	"github.com/krish567366/submicro-execution-engine/internal/config"
	"github.com/krish567366/submicro-execution-engine/pkg/logger"
)

const (
	exitOK            = 0
	exitConfigOrInput = 1
	exitRuntime       = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	samples := flag.Int("samples", 0, "limit the run to the first N events (0 = all)")
	output := flag.String("output", "backtest", "output file prefix")
	components := flag.Bool("components", false, "write only the components breakdown CSV")
	full := flag.Bool("full", false, "write the total, components, and raw-samples CSVs")
	configPath := flag.String("config", "", "path to a backtest YAML config file")
	inputPath := flag.String("input", "", "path to the historical event CSV")
	trace := flag.Bool("trace", false, "emit an OpenTelemetry trace of the replay loop to stdout")
	cacheAddr := flag.String("cache-addr", "", "Redis address for the replay result cache (disabled if empty)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "backtestcli: --input is required")
		return exitConfigOrInput
	}

	log, err := logger.NewLogger(logger.Options{Level: "info"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "backtestcli: logger init failed:", err)
		return exitConfigOrInput
	}
	defer log.Sync()

	// Config-loading and input-validation diagnostics go through the
	// log/slog.Logger facade bridged onto the same zap core (SPEC_FULL.md
	// §4.10); tracing setup, replay, and report writing use the
	// *zap.Logger directly.
	slogLog := logger.Slog(log)

	mgr := config.NewManager(*configPath, log)
	if err := mgr.Load(); err != nil {
		slogLog.Error("backtestcli: config load failed", "error", err)
		return exitConfigOrInput
	}
	cfg := mgr.Config()

	inputBytes, err := os.ReadFile(*inputPath)
	if err != nil {
		slogLog.Error("backtestcli: opening input", "error", err)
		return exitConfigOrInput
	}

	inputSHA256, err := backtest.SHA256File(bytes.NewReader(inputBytes))
	if err != nil {
		slogLog.Error("backtestcli: hashing input", "error", err)
		return exitConfigOrInput
	}

	events, skipped, err := backtest.LoadHistoricalEvents(bytes.NewReader(inputBytes))
	if err != nil {
		slogLog.Error("backtestcli: loading events", "error", err)
		return exitConfigOrInput
	}
	if skipped > 0 {
		slogLog.Warn("backtestcli: skipped malformed rows", "count", skipped)
	}
	if *samples > 0 && *samples < len(events) {
		events = events[:*samples]
	}

	driverCfg := backtest.Config{
		SimulatedLatencyNs:     cfg.SimulatedLatencyNs,
		InitialCapital:         cfg.InitialCapital,
		CommissionPerShare:     cfg.CommissionPerShare,
		MaxPosition:            cfg.MaxPosition,
		EnableSlippage:         cfg.EnableSlippage,
		EnableAdverseSelection: cfg.EnableAdverseSelection,
		RandomSeed:             cfg.RandomSeed,
		TimeHorizonSeconds:     cfg.TimeHorizonSeconds,
		RiskAversion:           cfg.RiskAversion,
		SigmaSquaredPerSec:     cfg.SigmaSquaredPerSec,
		OrderArrivalRate:       cfg.OrderArrivalRate,
		TickSize:               cfg.TickSize,
		HawkesBaselineBuy:      cfg.HawkesBaselineBuy,
		HawkesBaselineSell:     cfg.HawkesBaselineSell,
		HawkesAlphaSelf:        cfg.HawkesAlphaSelf,
		HawkesAlphaCross:       cfg.HawkesAlphaCross,
		HawkesBeta:             cfg.HawkesBeta,
		HawkesGamma:            cfg.HawkesGamma,
	}

	if *trace {
		shutdown, err := installTraceProvider()
		if err != nil {
			log.Error("backtestcli: trace provider setup failed", zap.Error(err))
			return exitRuntime
		}
		defer shutdown()
	}

	ctx := context.Background()
	var cache backtest.ResultCache
	if *cacheAddr != "" {
		redisCache := backtest.NewRedisResultCache(*cacheAddr, 24*time.Hour)
		defer redisCache.Close()
		cache = redisCache
	}

	if len(cfg.LatencySweep) > 0 {
		if err := runSweep(ctx, driverCfg, cfg.LatencySweep, events, log, cache, inputSHA256, *output, *components, *full); err != nil {
			log.Error("backtestcli: latency sweep failed", zap.Error(err))
			return exitRuntime
		}
		return exitOK
	}

	report, err := runOne(ctx, driverCfg, events, log, cache, inputSHA256, *output)
	if err != nil {
		log.Error("backtestcli: replay failed", zap.Error(err))
		return exitRuntime
	}

	if err := writeReports(*output, report, *components, *full); err != nil {
		log.Error("backtestcli: writing reports", zap.Error(err))
		return exitRuntime
	}

	fmt.Printf("total_pnl=%.4f sharpe=%.4f trades=%d fill_rate=%.4f\n",
		report.TotalPnL, report.SharpeRatio, report.TotalTrades, report.FillRate)
	return exitOK
}

// runOne replays events once under cfg. Besides the Report it returns, it
// writes two side-channel outputs spec §6 requires: the `<prefix>_events.log`
// append-only fill/RTT/slippage log, and the `<prefix>_header.json` replay
// header "prepended to run output". cache, when non-nil, is consulted
// before replaying and populated after; on a cache hit the cached Report
// is returned without replaying, and neither side-channel file is
// written.
func runOne(
	ctx context.Context,
	cfg backtest.Config,
	events []backtest.HistoricalEvent,
	log *zap.Logger,
	cache backtest.ResultCache,
	inputSHA256, prefix string,
) (backtest.Report, error) {
	var cacheKey string
	if cache != nil {
		cacheKey = backtest.CacheKey(inputSHA256, cfg)
		if cached, hit, err := cache.Get(ctx, cacheKey); err != nil {
			log.Warn("backtestcli: result cache lookup failed", zap.Error(err))
		} else if hit {
			log.Info("backtestcli: serving cached replay result", zap.String("key", cacheKey))
			return cached, nil
		}
	}

	eventLogFile, err := os.Create(prefix + "_events.log")
	if err != nil {
		return backtest.Report{}, err
	}
	defer eventLogFile.Close()
	eventLog := backtest.NewTextEventLogger(eventLogFile)

	driver := backtest.New(cfg, log, nil, nil)
	driver.SetEventLog(eventLog)
	report := backtest.RunTraced(ctx, driver, events)
	if err := eventLog.Flush(); err != nil {
		return report, err
	}

	if cache != nil {
		if err := cache.Set(ctx, cacheKey, report); err != nil {
			log.Warn("backtestcli: result cache write failed", zap.Error(err))
		}
	}

	header := backtest.NewReplayHeader(backtest.ReplayHeaderConfig{
		SimulatedLatencyNs: cfg.SimulatedLatencyNs,
		RandomSeed:         cfg.RandomSeed,
		MaxPosition:        cfg.MaxPosition,
		CommissionPerShare: cfg.CommissionPerShare,
	}, inputSHA256)
	headerBytes, err := header.MarshalHeader()
	if err != nil {
		return report, err
	}
	if err := os.WriteFile(prefix+"_header.json", headerBytes, 0o644); err != nil {
		return report, err
	}

	return report, nil
}

// runSweep implements the `latency_sweep` config option (spec §6): one
// run per listed latency, each under its own output prefix, plus a
// `<prefix>_sweep_summary.csv` comparing them.
func runSweep(
	ctx context.Context,
	baseCfg backtest.Config,
	sweep []int64,
	events []backtest.HistoricalEvent,
	log *zap.Logger,
	cache backtest.ResultCache,
	inputSHA256, prefix string,
	componentsOnly, full bool,
) error {
	results := make([]backtest.SweepResult, 0, len(sweep))
	for _, latencyNs := range sweep {
		runCfg := baseCfg
		runCfg.SimulatedLatencyNs = latencyNs
		runPrefix := fmt.Sprintf("%s_latency%d", prefix, latencyNs)

		report, err := runOne(ctx, runCfg, events, log, cache, inputSHA256, runPrefix)
		if err != nil {
			return fmt.Errorf("latency_sweep %dns: %w", latencyNs, err)
		}
		if err := writeReports(runPrefix, report, componentsOnly, full); err != nil {
			return fmt.Errorf("latency_sweep %dns: %w", latencyNs, err)
		}
		results = append(results, backtest.SweepResult{LatencyNs: latencyNs, Report: report})
	}

	summary, err := os.Create(prefix + "_sweep_summary.csv")
	if err != nil {
		return err
	}
	defer summary.Close()
	return backtest.WriteSweepSummaryCSV(summary, results)
}

// installTraceProvider wires a stdout span exporter into the global otel
// tracer provider (SPEC_FULL.md §4.10's optional tracing wrapper around
// the replay loop), returning a shutdown func to flush on exit.
func installTraceProvider() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		_ = provider.Shutdown(context.Background())
	}, nil
}

func writeReports(prefix string, report backtest.Report, componentsOnly, full bool) error {
	if !componentsOnly {
		f, err := os.Create(prefix + "_total.csv")
		if err != nil {
			return err
		}
		defer f.Close()
		if err := backtest.WriteTotalCSV(f, report); err != nil {
			return err
		}
	}

	f, err := os.Create(prefix + "_components.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := backtest.WriteComponentsCSV(f, report); err != nil {
		return err
	}

	if full {
		rf, err := os.Create(prefix + "_raw_samples.csv")
		if err != nil {
			return err
		}
		defer rf.Close()
		if err := backtest.WriteRawSamplesCSV(rf, report); err != nil {
			return err
		}
	}
	return nil
}
