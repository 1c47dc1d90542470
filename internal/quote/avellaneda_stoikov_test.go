package quote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

// Scenario D (spec §8): γ=0.01, σ²_per_sec=1e-8, T=300, k=10, tick=0.01,
// m=100.00, q=0, ℓ=850ns → Δ≈0.1999 (above the 0.02 floor), half-spread
// ≈0.0999, reservation=100.00, bid≈99.90, ask≈100.10.
func TestScenarioD_QuoteCalculation(t *testing.T) {
	e := New(Params{RiskAversion: 0.01, SigmaSquaredPerSec: 1e-8, OrderArrivalRate: 10, TickSize: 0.01, MaxInventory: 1000})

	latencyCost := e.CalculateLatencyCost(0.0, 100.00, 850)
	q := e.CalculateQuotes(100.00, 0, 300, latencyCost)

	assert.InDelta(t, 99.90, q.BidPrice, 0.02)
	assert.InDelta(t, 100.10, q.AskPrice, 0.02)
	assert.Less(t, q.BidPrice, q.AskPrice)
	assert.InDelta(t, 0.1999, q.Spread, 0.02)
}

// Universal invariant 5: for m>0, T>0, bid<ask, spread ≥ minimum_spread,
// bid/ask are integer multiples of tick_size.
func TestInvariant_QuoteIsWellFormed(t *testing.T) {
	e := New(Params{RiskAversion: 0.05, SigmaSquaredPerSec: 2e-7, OrderArrivalRate: 5, TickSize: 0.01, MaxInventory: 500})

	for _, inv := range []int64{-500, -200, 0, 200, 500} {
		q := e.CalculateQuotes(50.00, inv, 120, 0)
		assert.Less(t, q.BidPrice, q.AskPrice)
		assert.GreaterOrEqual(t, q.Spread, e.minSpread-1e-9)

		bidTicks := q.BidPrice / e.tickSize
		askTicks := q.AskPrice / e.tickSize
		assert.InDelta(t, math.Round(bidTicks), bidTicks, 1e-6)
		assert.InDelta(t, math.Round(askTicks), askTicks, 1e-6)
	}
}

// Universal invariant 6: |skew| ≤ 1 for all q; skew(0)=0; skew(Q_max)>0;
// skew(−Q_max)<0.
func TestInvariant_InventorySkewBounds(t *testing.T) {
	e := New(Params{MaxInventory: 1000})
	assert.Equal(t, float64(0), e.InventorySkew(0))
	assert.Greater(t, e.InventorySkew(1000), float64(0))
	assert.Less(t, e.InventorySkew(-1000), float64(0))

	for _, q := range []int64{-2000, -1000, -1, 0, 1, 1000, 2000} {
		assert.LessOrEqual(t, math.Abs(e.InventorySkew(q)), 1.0)
	}
}

func TestCalculateQuotesRejectsNonPositiveInputs(t *testing.T) {
	e := New(Params{RiskAversion: 0.1, SigmaSquaredPerSec: 1e-8, OrderArrivalRate: 10, TickSize: 0.01})

	q := e.CalculateQuotes(0, 0, 100, 0)
	assert.Equal(t, types.QuotePair{}, q)

	q = e.CalculateQuotes(100, 0, 0, 0)
	assert.Equal(t, types.QuotePair{}, q)
}

func TestShouldQuoteRequiresTenPercentMargin(t *testing.T) {
	e := New(Params{})
	assert.True(t, e.ShouldQuote(1.0, 0.4))
	assert.False(t, e.ShouldQuote(1.0, 0.5))
}

func TestLatencyCostScalesWithVolatilityAndSqrtLatency(t *testing.T) {
	e := New(Params{})
	low := e.CalculateLatencyCost(0.2, 100, 500_000)
	high := e.CalculateLatencyCost(0.2, 100, 2_000_000)
	assert.Greater(t, high, low)
}

func TestQuoteSizeIncreasesOnInventoryReducingSide(t *testing.T) {
	e := New(Params{RiskAversion: 0.05, SigmaSquaredPerSec: 1e-7, OrderArrivalRate: 5, TickSize: 0.01, MaxInventory: 1000})
	longQuotes := e.CalculateQuotes(100, 800, 100, 0)
	assert.Greater(t, longQuotes.AskSize, longQuotes.BidSize, "a long position should size up the ask to encourage selling")
}
