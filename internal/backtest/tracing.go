package backtest

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this package's spans in whatever exporter the
// caller configured (SPEC_FULL.md §4.10's optional tracing wrapper
// around the replay loop).
const tracerName = "github.com/krish567366/submicro-execution-engine/internal/backtest"

// RunTraced wraps Driver.Run in a span recording the event count and
// resulting trade/P&L summary, via whatever tracer provider the caller
// installed with otel.SetTracerProvider (a no-op tracer if none was
// installed, so this never requires a collector to be present).
func RunTraced(ctx context.Context, d *Driver, events []HistoricalEvent) Report {
	tracer := otel.Tracer(tracerName)
	_, span := tracer.Start(ctx, "backtest.Run", trace.WithAttributes(
		attribute.Int("backtest.event_count", len(events)),
	))
	defer span.End()

	report := d.Run(events)

	span.SetAttributes(
		attribute.Float64("backtest.total_pnl", report.TotalPnL),
		attribute.Int("backtest.total_trades", report.TotalTrades),
		attribute.Float64("backtest.fill_rate", report.FillRate),
	)
	return report
}
