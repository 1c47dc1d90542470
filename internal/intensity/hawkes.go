// Package intensity implements the multivariate self-exciting point
// process of spec §4.4: a two-sided Hawkes intensity engine with a
// power-law decay kernel, grounded on
// original_source/include/hawkes_engine.hpp and generalized from that
// file's deque-based event history to a fixed-capacity ring in the style
// of the teacher's internal/trading/orderbook/order_ring_buffer.go.
package intensity

import (
	"math"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

type Side = types.Side

const (
	Buy  = types.Buy
	Sell = types.Sell
)

const defaultMaxHistory = 1000

// eventHistory is a fixed-capacity FIFO of arrival timestamps, oldest
// evicted first once max_history is reached (spec §4.4).
type eventHistory struct {
	buf  []int64
	head int
	n    int
}

func newEventHistory(capacity int) *eventHistory {
	return &eventHistory{buf: make([]int64, capacity)}
}

func (h *eventHistory) push(tsNs int64) {
	idx := (h.head + h.n) % len(h.buf)
	if h.n == len(h.buf) {
		h.head = (h.head + 1) % len(h.buf)
	} else {
		h.n++
	}
	h.buf[idx] = tsNs
}

func (h *eventHistory) forEach(f func(tsNs int64)) {
	for i := 0; i < h.n; i++ {
		f(h.buf[(h.head+i)%len(h.buf)])
	}
}

func (h *eventHistory) len() int { return h.n }

// Engine is the two-sided Hawkes intensity estimator of spec §4.4.
//
// λ_i(t) = μ_i + Σ_j Σ_{t_k < t} α_ij · K(t − t_k),  K(τ) = (β + τ)^(−γ)
type Engine struct {
	muBuy, muSell       float64
	alphaSelf           float64
	alphaCross          float64
	beta, gamma         float64
	currentTimeNs       int64
	intensityBuy        float64
	intensitySell       float64
	buyEvents           *eventHistory
	sellEvents          *eventHistory
}

// Params configures a new Engine. Gamma must exceed 1 for the power-law
// kernel to be summable; Beta must be strictly positive to avoid a
// singularity at τ=0. Both are silently floored per spec §4.4/§9 rather
// than rejected, mirroring the reference engine's constructor.
type Params struct {
	BaselineBuy, BaselineSell float64
	AlphaSelf, AlphaCross     float64
	Beta, Gamma               float64
	MaxHistory                int
}

// New constructs an Engine with intensities initialized to the
// respective baselines and empty event history.
func New(p Params) *Engine {
	if p.Gamma <= 1.0 {
		p.Gamma = 1.5
	}
	if p.Beta <= 0.0 {
		p.Beta = 1e-6
	}
	if p.MaxHistory <= 0 {
		p.MaxHistory = defaultMaxHistory
	}
	return &Engine{
		muBuy:         p.BaselineBuy,
		muSell:        p.BaselineSell,
		alphaSelf:     p.AlphaSelf,
		alphaCross:    p.AlphaCross,
		beta:          p.Beta,
		gamma:         p.Gamma,
		intensityBuy:  p.BaselineBuy,
		intensitySell: p.BaselineSell,
		buyEvents:     newEventHistory(p.MaxHistory),
		sellEvents:    newEventHistory(p.MaxHistory),
	}
}

func (e *Engine) powerLawKernel(tauSeconds float64) float64 {
	if tauSeconds < 0 {
		return 0
	}
	return math.Pow(e.beta+tauSeconds, -e.gamma)
}

// Update folds one new arrival into the event history and recomputes
// both intensities at its arrival time (spec §4.4 update).
func (e *Engine) Update(arrivalTimeNs int64, side Side) {
	e.currentTimeNs = arrivalTimeNs
	if side == Buy {
		e.buyEvents.push(arrivalTimeNs)
	} else {
		e.sellEvents.push(arrivalTimeNs)
	}
	e.intensityBuy = e.computeIntensity(Buy, e.currentTimeNs)
	e.intensitySell = e.computeIntensity(Sell, e.currentTimeNs)
}

// computeIntensity evaluates λ_side(evalTimeNs) over the full retained
// history — self-excitation from same-side arrivals, cross-excitation
// from opposite-side arrivals — floored at 1e-10 (spec §7 NumericError:
// "λ floored to 1e-10; never NaN/Inf leaves a component").
func (e *Engine) computeIntensity(side Side, evalTimeNs int64) float64 {
	base := e.muBuy
	same, cross := e.buyEvents, e.sellEvents
	if side == Sell {
		base = e.muSell
		same, cross = e.sellEvents, e.buyEvents
	}

	intensity := base
	same.forEach(func(tsNs int64) {
		if tsNs < evalTimeNs {
			tau := float64(evalTimeNs-tsNs) * 1e-9
			intensity += e.alphaSelf * e.powerLawKernel(tau)
		}
	})
	cross.forEach(func(tsNs int64) {
		if tsNs < evalTimeNs {
			tau := float64(evalTimeNs-tsNs) * 1e-9
			intensity += e.alphaCross * e.powerLawKernel(tau)
		}
	})

	if intensity < 1e-10 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return 1e-10
	}
	return intensity
}

// BuyIntensity returns the most recently computed λ_buy(t).
func (e *Engine) BuyIntensity() float64 { return e.intensityBuy }

// SellIntensity returns the most recently computed λ_sell(t).
func (e *Engine) SellIntensity() float64 { return e.intensitySell }

// Imbalance reports the directional signal (λ_buy−λ_sell)/(λ_buy+λ_sell),
// defined as 0 when the denominator is ≈0 (spec §7 NumericError).
func (e *Engine) Imbalance() float64 {
	total := e.intensityBuy + e.intensitySell
	if total < 1e-10 {
		return 0
	}
	return (e.intensityBuy - e.intensitySell) / total
}

// Predict forecasts λ_buy/λ_sell at currentTime+horizonNs without
// mutating state, for latency compensation (spec §4.4).
func (e *Engine) Predict(horizonNs int64) (buy, sell float64) {
	future := e.currentTimeNs + horizonNs
	return e.computeIntensity(Buy, future), e.computeIntensity(Sell, future)
}

// Reset clears all event history and restores the baseline intensities.
func (e *Engine) Reset() {
	e.buyEvents = newEventHistory(len(e.buyEvents.buf))
	e.sellEvents = newEventHistory(len(e.sellEvents.buf))
	e.intensityBuy = e.muBuy
	e.intensitySell = e.muSell
	e.currentTimeNs = 0
}

// BuyEventCount and SellEventCount report retained history depth, for
// diagnostics and tests.
func (e *Engine) BuyEventCount() int  { return e.buyEvents.len() }
func (e *Engine) SellEventCount() int { return e.sellEvents.len() }
