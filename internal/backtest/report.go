package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

// calculateReport derives the full performance summary from this run's
// recorded P&L, trade, and spread history (spec §4.7), grounded on
// original_source/include/backtesting_engine.hpp's calculate_metrics.
func (d *Driver) calculateReport() Report {
	var report Report
	if len(d.pnlHistory) == 0 {
		return report
	}

	report.TotalPnL = d.pnlHistory[len(d.pnlHistory)-1]

	returns := make([]float64, 0, len(d.pnlHistory)-1)
	for i := 1; i < len(d.pnlHistory); i++ {
		returns = append(returns, d.pnlHistory[i]-d.pnlHistory[i-1])
	}

	meanReturn, volatility := meanAndStddev(returns)
	const secondsPerYear = 252.0 * 6.5 * 3600.0
	if volatility > 1e-10 {
		report.SharpeRatio = (meanReturn / volatility) * math.Sqrt(secondsPerYear)
	}

	var downsideSq float64
	var downsideCount int
	for _, r := range returns {
		if r < 0 {
			downsideSq += r * r
			downsideCount++
		}
	}
	var downsideDeviation float64
	if downsideCount > 0 {
		downsideDeviation = math.Sqrt(downsideSq / float64(downsideCount))
		report.SortinoRatio = (meanReturn / downsideDeviation) * math.Sqrt(secondsPerYear)
	}

	peak := d.pnlHistory[0]
	var maxDD float64
	for _, pnl := range d.pnlHistory {
		peak = math.Max(peak, pnl)
		dd := (peak - pnl) / (math.Abs(peak) + 1e-10)
		maxDD = math.Max(maxDD, dd)
	}
	report.MaxDrawdown = maxDD
	if maxDD > 1e-10 {
		report.CalmarRatio = (report.TotalPnL / d.cfg.InitialCapital) / maxDD
	}

	report.TotalTrades = len(d.filledOrders)
	var grossProfit, grossLoss float64
	for _, trade := range d.filledOrders {
		var tradePnL float64
		if trade.order.Side == types.Buy {
			tradePnL = (d.lastMidPrice - trade.order.Price) * float64(trade.order.Quantity)
		} else {
			tradePnL = (trade.order.Price - d.lastMidPrice) * float64(trade.order.Quantity)
		}
		if tradePnL > 0 {
			report.WinningTrades++
			grossProfit += tradePnL
		} else {
			report.LosingTrades++
			grossLoss += math.Abs(tradePnL)
		}
	}
	if report.TotalTrades > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
		report.AvgTradePnL = report.TotalPnL / float64(report.TotalTrades)
	}
	if grossLoss > 1e-10 {
		report.ProfitFactor = grossProfit / grossLoss
	}
	if report.WinningTrades > 0 {
		report.AvgWin = grossProfit / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = grossLoss / float64(report.LosingTrades)
	}
	if d.submittedOrders > 0 {
		report.FillRate = float64(len(d.filledOrders)) / float64(d.submittedOrders)
	}

	if len(d.quotedSpreadBps) > 0 {
		var sum float64
		for _, s := range d.quotedSpreadBps {
			sum += s
		}
		report.QuotedSpreadBps = sum / float64(len(d.quotedSpreadBps))
		report.RealizedSpreadBps = effectiveRealizedSpread(d.filledOrders, d)
		report.EffectiveSpreadBps = report.RealizedSpreadBps
	}

	sortedReturns := append([]float64(nil), returns...)
	sort.Float64s(sortedReturns)
	if n := len(sortedReturns); n > 0 {
		varIdx := int(float64(n) * 0.05)
		report.ValueAtRisk95 = -sortedReturns[varIdx]
		var cvarSum float64
		for i := 0; i < varIdx; i++ {
			cvarSum += sortedReturns[i]
		}
		if varIdx > 0 {
			report.ConditionalVaR95 = -cvarSum / float64(varIdx)
		}
	}

	report.EquityCurve = d.pnlHistory
	report.Timestamps = d.timestampHistory
	return report
}

// effectiveRealizedSpread resolves SPEC_FULL.md §9 Open Question #1: the
// realized/effective spread is computed per fill against the
// order's own decision-time mid, not a fixed 60%/80% capture-ratio
// heuristic. There is no look-ahead horizon: the mid at a later time is
// not used.
func effectiveRealizedSpread(fills []simulatedOrder, d *Driver) float64 {
	if len(fills) == 0 {
		return 0
	}
	var sumBps float64
	for _, f := range fills {
		if f.decisionMid <= 0 {
			continue
		}
		sumBps += math.Abs(f.order.Price-f.decisionMid) / f.decisionMid * 10000.0
	}
	return sumBps / float64(len(fills))
}

func meanAndStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / float64(len(values)))
	return mean, stddev
}

// WriteTotalCSV writes the `<prefix>_total.csv` summary row (spec §6).
func WriteTotalCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	header := []string{"total_pnl", "sharpe_ratio", "sortino_ratio", "max_drawdown", "calmar_ratio", "total_trades", "win_rate", "fill_rate"}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := []string{
		fmt.Sprintf("%.6f", report.TotalPnL),
		fmt.Sprintf("%.6f", report.SharpeRatio),
		fmt.Sprintf("%.6f", report.SortinoRatio),
		fmt.Sprintf("%.6f", report.MaxDrawdown),
		fmt.Sprintf("%.6f", report.CalmarRatio),
		fmt.Sprintf("%d", report.TotalTrades),
		fmt.Sprintf("%.6f", report.WinRate),
		fmt.Sprintf("%.6f", report.FillRate),
	}
	return cw.Write(row)
}

// WriteComponentsCSV writes the `<prefix>_components.csv` breakdown
// (spec §6).
func WriteComponentsCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	header := []string{"quoted_spread_bps", "realized_spread_bps", "effective_spread_bps", "avg_win", "avg_loss", "profit_factor", "value_at_risk_95", "conditional_var_95"}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := []string{
		fmt.Sprintf("%.6f", report.QuotedSpreadBps),
		fmt.Sprintf("%.6f", report.RealizedSpreadBps),
		fmt.Sprintf("%.6f", report.EffectiveSpreadBps),
		fmt.Sprintf("%.6f", report.AvgWin),
		fmt.Sprintf("%.6f", report.AvgLoss),
		fmt.Sprintf("%.6f", report.ProfitFactor),
		fmt.Sprintf("%.6f", report.ValueAtRisk95),
		fmt.Sprintf("%.6f", report.ConditionalVaR95),
	}
	return cw.Write(row)
}

// SweepResult pairs one latency_sweep element (spec §6) with the report
// its run produced.
type SweepResult struct {
	LatencyNs int64
	Report    Report
}

// WriteSweepSummaryCSV writes the summary spec §6's latency_sweep
// option requires: one row per configured latency.
func WriteSweepSummaryCSV(w io.Writer, results []SweepResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	header := []string{"latency_ns", "total_pnl", "sharpe_ratio", "fill_rate", "total_trades"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			fmt.Sprintf("%d", r.LatencyNs),
			fmt.Sprintf("%.6f", r.Report.TotalPnL),
			fmt.Sprintf("%.6f", r.Report.SharpeRatio),
			fmt.Sprintf("%.6f", r.Report.FillRate),
			fmt.Sprintf("%d", r.Report.TotalTrades),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteRawSamplesCSV writes the `<prefix>_raw_samples.csv` equity curve
// (spec §6).
func WriteRawSamplesCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"ts_ns", "equity"}); err != nil {
		return err
	}
	for i, ts := range report.Timestamps {
		if err := cw.Write([]string{fmt.Sprintf("%d", ts), fmt.Sprintf("%.6f", report.EquityCurve[i])}); err != nil {
			return err
		}
	}
	return nil
}
