// Package backtest implements the deterministic event-replay
// BacktestDriver of spec §4.7: single-threaded sequential event
// processing, a fill-probability model with adverse selection (§4.8), a
// temporal-persistence filter over book imbalance, and a 550ns latency
// floor. Grounded on
// original_source/include/backtesting_engine.hpp's BacktestingEngine,
// restructured around this repo's OrderBook/IntensityEngine/QuoteEngine/
// RiskGate packages in place of the reference's inline strategy calls.
package backtest

import (
	"math"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/krish567366/submicro-execution-engine/internal/intensity"
	"github.com/krish567366/submicro-execution-engine/internal/oracle"
	"github.com/krish567366/submicro-execution-engine/internal/orderbook"
	"github.com/krish567366/submicro-execution-engine/internal/quote"
	"github.com/krish567366/submicro-execution-engine/internal/risk"
	"github.com/krish567366/submicro-execution-engine/internal/types"
	"github.com/krish567366/submicro-execution-engine/pkg/metrics"
)

// MinimumLatencyFloorNs is the absolute floor every simulated order's
// latency is clamped to (spec §7/§8 invariant 10).
const MinimumLatencyFloorNs int64 = 550

// Config is the driver's resolved configuration (spec §6).
type Config struct {
	SimulatedLatencyNs     int64
	InitialCapital         float64
	CommissionPerShare     float64
	MaxPosition            int64
	EnableSlippage         bool
	EnableAdverseSelection bool
	RandomSeed             uint32

	TimeHorizonSeconds float64 // quote horizon T fed to the QuoteEngine; default 600

	RiskAversion       float64
	SigmaSquaredPerSec float64
	OrderArrivalRate   float64
	TickSize           float64

	HawkesBaselineBuy, HawkesBaselineSell float64
	HawkesAlphaSelf, HawkesAlphaCross     float64
	HawkesBeta, HawkesGamma               float64
}

// EffectiveLatencyNs applies the 550ns floor (spec §6/§7/§8 invariant
// 10).
func (c Config) EffectiveLatencyNs() int64 {
	if c.SimulatedLatencyNs < MinimumLatencyFloorNs {
		return MinimumLatencyFloorNs
	}
	return c.SimulatedLatencyNs
}

type simulatedOrder struct {
	order         types.Order
	submitTimeNs  int64
	queuePosition int
	decisionMid   float64
}

// Driver runs a deterministic single-threaded replay of a historical
// event file against the live strategy stack.
type Driver struct {
	cfg Config
	logger *zap.Logger

	book           *orderbook.Book
	hawkes         *intensity.Engine
	quoteEngine    *quote.Engine
	riskGate       *risk.Gate
	oracle         oracle.Oracle
	fillModel      FillProbabilityModel
	temporalFilter *TemporalFilterState
	telemetry      TelemetrySink
	eventLog       EventLogger

	rng *rand.Rand

	position     int64
	capital      decimal.Decimal
	realizedPnL  float64
	prevRealizedPnL float64
	unrealizedPnL float64
	lastMidPrice  float64
	nextOrderID  uint64
	nextSequence uint64

	activeOrders []simulatedOrder
	filledOrders []simulatedOrder

	pnlHistory       []float64
	timestampHistory []int64
	quotedSpreadBps  []float64
	submittedOrders  uint64
}

// New constructs a Driver. telemetry and o may be nil, in which case
// NoopTelemetrySink and a LinearOracle with balanced weights are used.
func New(cfg Config, logger *zap.Logger, o oracle.Oracle, telemetry TelemetrySink) *Driver {
	if o == nil {
		o = oracle.LinearOracle{OFIWeight: 0.5, IntensityWeight: 0.5}
	}
	if telemetry == nil {
		telemetry = NoopTelemetrySink{}
	}
	if cfg.TimeHorizonSeconds <= 0 {
		cfg.TimeHorizonSeconds = 600.0
	}

	return &Driver{
		cfg:    cfg,
		logger: logger,
		book:   orderbook.New("BACKTEST", logger),
		hawkes: intensity.New(intensity.Params{
			BaselineBuy: cfg.HawkesBaselineBuy, BaselineSell: cfg.HawkesBaselineSell,
			AlphaSelf: cfg.HawkesAlphaSelf, AlphaCross: cfg.HawkesAlphaCross,
			Beta: cfg.HawkesBeta, Gamma: cfg.HawkesGamma,
		}),
		oracle: o,
		quoteEngine: quote.New(quote.Params{
			RiskAversion: cfg.RiskAversion, SigmaSquaredPerSec: cfg.SigmaSquaredPerSec,
			OrderArrivalRate: cfg.OrderArrivalRate, TickSize: cfg.TickSize,
			MaxInventory: cfg.MaxPosition,
		}),
		riskGate: risk.New(risk.Config{
			MaxPosition:      cfg.MaxPosition,
			MaxTradeNotional: cfg.InitialCapital * 0.5,
			MaxDailyLoss:     cfg.InitialCapital * 0.5,
		}),
		fillModel:      NewFillProbabilityModel(DefaultFillModelParams()),
		temporalFilter: NewTemporalFilterState(DefaultTemporalFilterParams()),
		telemetry:      telemetry,
		eventLog:       NoopEventLogger{},
		rng:            rand.New(rand.NewSource(int64(cfg.RandomSeed))),
		capital:        decimal.NewFromFloat(cfg.InitialCapital),
		nextOrderID:    1,
	}
}

// SetEventLog opts the driver into the append-only fill/RTT/slippage
// log of spec §6; the default is NoopEventLogger.
func (d *Driver) SetEventLog(l EventLogger) {
	d.eventLog = l
}

// Report summarizes one completed backtest run (spec §4.7).
type Report struct {
	TotalPnL       float64
	SharpeRatio    float64
	SortinoRatio   float64
	MaxDrawdown    float64
	CalmarRatio    float64
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	ProfitFactor   float64
	AvgTradePnL    float64
	AvgWin         float64
	AvgLoss        float64
	FillRate       float64
	QuotedSpreadBps   float64
	RealizedSpreadBps float64
	EffectiveSpreadBps float64
	ValueAtRisk95     float64
	ConditionalVaR95  float64
	EquityCurve    []float64
	Timestamps     []int64
}

// Run replays events in timestamp order against the strategy stack and
// returns the resulting performance report (spec §4.7, invariant 9:
// identical inputs/config/seed produce identical output).
func (d *Driver) Run(events []HistoricalEvent) Report {
	sorted := make([]HistoricalEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimestampNs < sorted[j].TimestampNs })

	firstTick := true
	var currentTimeNs int64

	for _, evt := range sorted {
		currentTimeNs = evt.TimestampNs
		d.applyEvent(evt)

		currentTick := d.currentMarketTick(evt)
		if firstTick {
			firstTick = false
			continue
		}

		obi := d.book.Latest().VolumeImbalance
		persistent := d.temporalFilter.Update(obi, currentTimeNs)
		if persistent {
			d.maybeTrade(currentTimeNs, currentTick)
		}

		d.processFillChecks(currentTimeNs, currentTick)
		d.updatePnL(currentTick)
		d.recordState(currentTimeNs, currentTick)

		d.telemetry.Publish(TelemetrySnapshot{
			TimestampNs: currentTimeNs,
			Features:    d.book.Latest(),
			Position:    d.position,
			RealizedPnL: d.realizedPnL,
		})
	}

	return d.calculateReport()
}

func (d *Driver) applyEvent(evt HistoricalEvent) {
	switch evt.Kind {
	case EventAdd, EventModify, EventCancel:
		d.nextSequence++
		upd, ok := evt.ToBookUpdate(d.nextSequence)
		if !ok {
			return
		}
		if _, err := d.book.ApplyUpdate(upd); err != nil {
			d.logger.Debug("backtest: book update rejected", zap.Error(err))
		}
	case EventTrade:
		d.nextSequence++
		_, _ = d.book.ApplyUpdate(orderbook.Update{
			Kind:           orderbook.Execute,
			OrderID:        evt.OrderID,
			Price:          evt.Price,
			Quantity:       evt.Size,
			Side:           evt.Side,
			SequenceNumber: d.nextSequence,
			TimestampNs:    evt.TimestampNs,
		})
		d.hawkes.Update(evt.TimestampNs, evt.Side)
	case EventSnapshot:
		d.nextSequence++
		d.book.ApplySnapshot(orderbook.Snapshot{
			Bids:           []orderbook.LevelSnapshot{{Price: evt.Price, Quantity: evt.Size}},
			SequenceNumber: d.nextSequence,
		})
	}
}

func (d *Driver) currentMarketTick(evt HistoricalEvent) types.Tick {
	bid, hasBid, ask, hasAsk := d.book.TopOfBook()
	var tick types.Tick
	tick.TimestampNs = evt.TimestampNs
	if hasBid {
		tick.BidPrice = bid.Price
		tick.BidSize = bid.Quantity
	}
	if hasAsk {
		tick.AskPrice = ask.Price
		tick.AskSize = ask.Quantity
	}
	if hasBid && hasAsk {
		tick.MidPrice = (tick.BidPrice + tick.AskPrice) / 2.0
	} else if hasBid {
		tick.MidPrice = tick.BidPrice
	} else if hasAsk {
		tick.MidPrice = tick.AskPrice
	}
	if evt.Kind == EventTrade {
		tick.TradeVolume = evt.Size
		tick.TradeSide = evt.Side
	}
	return tick
}

func (d *Driver) maybeTrade(nowNs int64, tick types.Tick) {
	if tick.MidPrice <= 0 {
		return
	}

	pred := d.oracle.Predict(d.book.Latest(), d.hawkes.BuyIntensity(), d.hawkes.SellIntensity())
	latencyCost := d.quoteEngine.CalculateLatencyCost(d.estimateVolatility(), tick.MidPrice, d.cfg.EffectiveLatencyNs())
	quotes := d.quoteEngine.CalculateQuotes(tick.MidPrice, d.position, d.cfg.TimeHorizonSeconds, latencyCost)

	priceValid := quotes.BidPrice > 0 && quotes.AskPrice > 0 && quotes.BidPrice < quotes.AskPrice
	if !priceValid {
		return
	}
	shouldTrade := d.quoteEngine.ShouldQuote(quotes.Spread, latencyCost)
	if !shouldTrade {
		return
	}
	// A strongly adverse oracle signal against the side we'd be
	// quoting into suppresses that side only, never both.
	quoteBid := pred.Signal > -0.9
	quoteAsk := pred.Signal < 0.9

	if quoteBid && quotes.BidSize > 0 {
		d.submitOrder(types.Order{OrderID: d.nextOrderID, Side: types.Buy, Price: quotes.BidPrice, Quantity: uint64(quotes.BidSize), SubmitTsNs: nowNs, IsActive: true}, tick)
		d.nextOrderID++
	}
	if quoteAsk && quotes.AskSize > 0 {
		d.submitOrder(types.Order{OrderID: d.nextOrderID, Side: types.Sell, Price: quotes.AskPrice, Quantity: uint64(quotes.AskSize), SubmitTsNs: nowNs, IsActive: true}, tick)
		d.nextOrderID++
	}
}

func (d *Driver) submitOrder(order types.Order, tick types.Tick) {
	ok, _ := d.riskGate.Check(order, d.position)
	if !ok {
		return
	}
	queuePos := int(tick.BidSize / 2)
	if order.Side == types.Sell {
		queuePos = int(tick.AskSize / 2)
	}
	d.activeOrders = append(d.activeOrders, simulatedOrder{
		order:         order,
		submitTimeNs:  order.SubmitTsNs,
		queuePosition: queuePos,
		decisionMid:   tick.MidPrice,
	})
	d.submittedOrders++

	d.eventLog.Log(EventLogEntry{
		TimestampNs: order.SubmitTsNs,
		OrderID:     order.OrderID,
		Side:        order.Side,
		Price:       order.Price,
		Quantity:    order.Quantity,
		Event:       LogSubmit,
		DecisionMid: tick.MidPrice,
	})
}

// processFillChecks resolves every active order whose enforced latency
// has elapsed — filled via a seeded draw against the fill-probability
// model, or dropped unfilled (spec §4.8, latency-floor invariant 10).
func (d *Driver) processFillChecks(nowNs int64, tick types.Tick) {
	enforcedLatency := d.cfg.EffectiveLatencyNs()
	remaining := d.activeOrders[:0]
	for _, so := range d.activeOrders {
		elapsed := nowNs - so.submitTimeNs
		if elapsed < enforcedLatency {
			remaining = append(remaining, so)
			continue
		}

		latencyUs := elapsed / 1000
		fillProb := d.fillModel.CalculateFillProbability(so.order, tick, so.queuePosition, d.estimateVolatility(), latencyUs)

		if d.rng.Float64() < fillProb {
			fillPrice := so.order.Price
			if d.cfg.EnableSlippage {
				displayed := float64(tick.BidSize + tick.AskSize)
				if displayed > 0 {
					frac := float64(so.order.Quantity) / displayed
					slip := d.fillModel.CalculateSlippage(tick, frac)
					if so.order.Side == types.Buy {
						fillPrice += slip
					} else {
						fillPrice -= slip
					}
				}
			}
			filled := so
			filled.order.Price = fillPrice
			d.filledOrders = append(d.filledOrders, filled)
			metrics.FillsTotal.WithLabelValues(so.order.Side.String()).Inc()

			d.eventLog.Log(EventLogEntry{
				TimestampNs: nowNs,
				OrderID:     so.order.OrderID,
				Side:        so.order.Side,
				Price:       fillPrice,
				Quantity:    so.order.Quantity,
				Event:       LogFill,
				LatencyNs:   elapsed,
				DecisionMid: so.decisionMid,
				FillMid:     tick.MidPrice,
			})

			if so.order.Side == types.Buy {
				d.position += int64(so.order.Quantity)
			} else {
				d.position -= int64(so.order.Quantity)
			}
			commission := decimal.NewFromFloat(d.cfg.CommissionPerShare).Mul(decimal.NewFromInt(int64(so.order.Quantity)))
			d.capital = d.capital.Sub(commission)
		}
	}
	d.activeOrders = remaining
}

func (d *Driver) estimateVolatility() float64 {
	const defaultVol = 0.20
	if len(d.pnlHistory) < 10 {
		return defaultVol
	}
	window := d.pnlHistory
	if len(window) > 100 {
		window = window[len(window)-100:]
	}
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		denom := math.Abs(window[i-1]) + 1e-10
		returns = append(returns, (window[i]-window[i-1])/denom)
	}
	return stddevAnnualized(returns)
}

func stddevAnnualized(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.20
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	variance := sq / float64(len(returns))
	const secondsPerYear = 252.0 * 6.5 * 3600.0
	return math.Sqrt(variance * secondsPerYear)
}

func (d *Driver) updatePnL(tick types.Tick) {
	d.unrealizedPnL = float64(d.position) * tick.MidPrice

	var realized float64
	for _, f := range d.filledOrders {
		if f.order.Side == types.Buy {
			realized += (tick.MidPrice - f.order.Price) * float64(f.order.Quantity)
		} else {
			realized += (f.order.Price - tick.MidPrice) * float64(f.order.Quantity)
		}
	}
	d.realizedPnL = realized
	d.riskGate.RecordPnL(d.realizedPnL - d.prevRealizedPnL)
	d.prevRealizedPnL = d.realizedPnL
	if tick.MidPrice > 0 {
		d.lastMidPrice = tick.MidPrice
	}
}

func (d *Driver) recordState(nowNs int64, tick types.Tick) {
	d.pnlHistory = append(d.pnlHistory, d.realizedPnL+d.unrealizedPnL)
	d.timestampHistory = append(d.timestampHistory, nowNs)
	if tick.MidPrice > 0 {
		spreadBps := ((tick.AskPrice - tick.BidPrice) / tick.MidPrice) * 10000.0
		d.quotedSpreadBps = append(d.quotedSpreadBps, spreadBps)
	}
}
