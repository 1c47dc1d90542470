package backtest

import (
	"math"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

// FillModelParams are the empirical adverse-selection fill-probability
// coefficients of spec §4.8, defaulted exactly as
// original_source/include/backtesting_engine.hpp's FillModelParameters.
type FillModelParams struct {
	BaseFillProbability     float64
	QueuePositionDecay      float64
	SpreadSensitivity       float64
	VolatilityImpact        float64
	AdverseSelectionPenalty float64
	LatencyPenaltyPerUs     float64
}

// DefaultFillModelParams reproduces the reference engine's defaults.
func DefaultFillModelParams() FillModelParams {
	return FillModelParams{
		BaseFillProbability:     0.70,
		QueuePositionDecay:      0.15,
		SpreadSensitivity:       0.05,
		VolatilityImpact:        0.10,
		AdverseSelectionPenalty: 0.20,
		LatencyPenaltyPerUs:     0.001,
	}
}

// FillProbabilityModel computes fill probability and slippage for a
// simulated resting order (spec §4.8).
type FillProbabilityModel struct {
	params FillModelParams
}

// NewFillProbabilityModel constructs a model with the given parameters.
func NewFillProbabilityModel(params FillModelParams) FillProbabilityModel {
	return FillProbabilityModel{params: params}
}

// CalculateFillProbability returns p ∈ [0, 1] combining queue position,
// spread, volatility, price aggressiveness, latency, and adverse
// selection (spec §4.8, scenario F).
func (m FillProbabilityModel) CalculateFillProbability(
	order types.Order,
	tick types.Tick,
	queuePosition int,
	currentVolatility float64,
	latencyUs int64,
) float64 {
	// A marketable order (crosses the spread) fills with certainty
	// regardless of queue, latency, or adverse selection (spec §8
	// scenario F) — it is checked first and returns immediately rather
	// than participating in the discounts below.
	switch order.Side {
	case types.Buy:
		if order.Price >= tick.AskPrice {
			return 1.0
		}
	case types.Sell:
		if order.Price <= tick.BidPrice {
			return 1.0
		}
	}

	p := m.params.BaseFillProbability

	p *= math.Exp(-m.params.QueuePositionDecay * float64(queuePosition))

	spread := tick.AskPrice - tick.BidPrice
	if tick.MidPrice > 0 {
		spreadBps := (spread / tick.MidPrice) * 10000.0
		p *= math.Exp(-m.params.SpreadSensitivity * spreadBps)
	}

	p *= math.Exp(-m.params.VolatilityImpact * currentVolatility)

	switch order.Side {
	case types.Buy:
		if order.Price < tick.BidPrice {
			p *= 0.1
		}
	case types.Sell:
		if order.Price > tick.AskPrice {
			p *= 0.1
		}
	}

	p *= math.Exp(-m.params.LatencyPenaltyPerUs * float64(latencyUs))

	adverseMove := (order.Side == types.Buy && tick.MidPrice > order.Price) ||
		(order.Side == types.Sell && tick.MidPrice < order.Price)
	if adverseMove {
		p *= 1.0 - m.params.AdverseSelectionPenalty
	}

	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p
}

// CalculateSlippage models a square-root market-impact curve: impact ∝
// √(order_size / displayed_liquidity), expressed as an absolute price
// offset (spec §4.8).
func (m FillProbabilityModel) CalculateSlippage(tick types.Tick, orderSizeFraction float64) float64 {
	const baseImpactBps = 0.5
	impact := baseImpactBps * math.Sqrt(orderSizeFraction)
	return (impact / 10000.0) * tick.MidPrice
}
