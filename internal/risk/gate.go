// Package risk implements the pre-trade RiskGate of spec §4.6: a
// branch-minimized set of position, notional, daily-loss, and regime
// checks performed before every order is emitted. It is grounded on the
// teacher's internal/risk and internal/compliance checker patterns
// (stateful limit objects exposing one Check method, with a denial
// reason surfaced to the caller and recorded on a metrics counter)
// generalized from the teacher's balance/KYC domain to position and
// P&L limits.
package risk

import (
	"github.com/krish567366/submicro-execution-engine/internal/types"
	"github.com/krish567366/submicro-execution-engine/pkg/metrics"
)

// Reason identifies which check denied an order, for the breach
// counter and optional breach log (spec §7 RiskDenied).
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonPositionLimit
	ReasonNotionalCap
	ReasonDailyLossCap
	ReasonRegimeHalted
	ReasonNakedShort
)

func (r Reason) String() string {
	switch r {
	case ReasonPositionLimit:
		return "position_limit"
	case ReasonNotionalCap:
		return "notional_cap"
	case ReasonDailyLossCap:
		return "daily_loss_cap"
	case ReasonRegimeHalted:
		return "regime_halted"
	case ReasonNakedShort:
		return "naked_short"
	default:
		return "none"
	}
}

// Config holds the static limits of spec §4.6.
type Config struct {
	MaxPosition      int64   // N_max
	MaxTradeNotional float64 // C_trade
	MaxDailyLoss     float64 // L_max
	DenyNakedShort   bool    // policy-parameterized naked-short denial
}

// Gate is the stateful RiskGate of spec §4.6: position limit, per-trade
// notional cap, daily loss cap, and market regime, plus realized P&L.
type Gate struct {
	cfg Config

	regime      types.MarketRegime
	realizedPnL float64
}

// New constructs a Gate starting in MarketRegime NORMAL with zero
// realized P&L.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg, regime: types.RegimeNormal}
}

// SetRegime updates the current market regime (spec §4.6).
func (g *Gate) SetRegime(r types.MarketRegime) { g.regime = r }

// Regime returns the current market regime.
func (g *Gate) Regime() types.MarketRegime { return g.regime }

// RecordPnL accumulates realized profit/loss. Losses are supplied as
// negative deltas.
func (g *Gate) RecordPnL(delta float64) { g.realizedPnL += delta }

// RealizedLoss reports the realized loss so far as a non-negative
// magnitude (0 if the gate is net profitable).
func (g *Gate) RealizedLoss() float64 {
	if g.realizedPnL >= 0 {
		return 0
	}
	return -g.realizedPnL
}

// Check evaluates every §4.6 criterion against the order and the
// position it would result in. Checks are evaluated in the order below
// and evaluation stops at the first violation, whose Reason is
// returned; the breach counter is incremented exactly once per denied
// call.
func (g *Gate) Check(order types.Order, currentPosition int64) (bool, Reason) {
	resultingPosition := currentPosition + order.SignedQty()

	denied := ReasonNone
	switch {
	case absInt64(resultingPosition) > g.cfg.MaxPosition:
		denied = ReasonPositionLimit
	case order.Price*float64(order.Quantity) > g.cfg.MaxTradeNotional:
		denied = ReasonNotionalCap
	case g.RealizedLoss() > g.cfg.MaxDailyLoss:
		denied = ReasonDailyLossCap
	case g.regime.SizeMultiplier() == 0:
		denied = ReasonRegimeHalted
	case g.cfg.DenyNakedShort && currentPosition <= 0 && order.Side == types.Sell:
		denied = ReasonNakedShort
	}

	if denied != ReasonNone {
		metrics.RiskDeniedTotal.WithLabelValues(denied.String()).Inc()
		return false, denied
	}
	return true, ReasonNone
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
